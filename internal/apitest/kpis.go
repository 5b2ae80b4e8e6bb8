package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Veraticus/showroom/internal/model"
)

func (s *Server) handleYears(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	years := make([]int, 0, len(s.kpis))
	for y := range s.kpis {
		years = append(years, y)
	}
	s.mu.Unlock()
	sort.Ints(years)
	writeJSON(w, http.StatusOK, years)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(mux.Vars(r)["year"])
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Year must be an integer")
		return
	}
	s.mu.Lock()
	months := append([]string{}, s.monthOrder[year]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Year must be an integer")
		return
	}
	month := strings.ToLower(vars["month"])

	s.mu.Lock()
	snap, ok := s.kpis[year][month]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "No KPI data for "+vars["month"]+" "+vars["year"])
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleAllKPIs keys every snapshot by "<year>/<month>".
func (s *Server) handleAllKPIs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	all := make(map[string]model.KPISnapshot)
	for year, months := range s.kpis {
		for month, snap := range months {
			all[strconv.Itoa(year)+"/"+month] = snap
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, all)
}

// countDealLocked bumps the unit count of the period a new deal landed in.
// It reports whether a snapshot existed to update.
func (s *Server) countDealLocked(year int, month string) bool {
	snap, ok := s.kpis[year][strings.ToLower(month)]
	if !ok {
		return false
	}
	snap.TotalUnitsSold++
	s.kpis[year][strings.ToLower(month)] = snap
	return true
}
