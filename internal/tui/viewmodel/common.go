// Package viewmodel turns controller state into plain render-ready values.
package viewmodel

import "fmt"

// Screen identifies which page of the application is showing.
type Screen int

const (
	// ScreenLogin asks for credentials.
	ScreenLogin Screen = iota
	// ScreenDashboard shows KPI cards for one period.
	ScreenDashboard
	// ScreenUpload submits files to the server.
	ScreenUpload
	// ScreenMasterSheet shows the deal ledger.
	ScreenMasterSheet
)

// Screens lists the signed-in pages in tab order.
var Screens = []Screen{ScreenDashboard, ScreenUpload, ScreenMasterSheet}

func (s Screen) String() string {
	switch s {
	case ScreenLogin:
		return "Sign In"
	case ScreenDashboard:
		return "Dashboard"
	case ScreenUpload:
		return "Upload"
	case ScreenMasterSheet:
		return "Master Sheet"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Next returns the page after s in tab order, wrapping around.
func (s Screen) Next() Screen {
	return s.step(1)
}

// Prev returns the page before s in tab order, wrapping around.
func (s Screen) Prev() Screen {
	return s.step(-1)
}

func (s Screen) step(delta int) Screen {
	for i, screen := range Screens {
		if screen == s {
			return Screens[(i+delta+len(Screens))%len(Screens)]
		}
	}
	return ScreenDashboard
}

// Status is the tone a message is rendered in.
type Status int

const (
	// StatusNone renders nothing special.
	StatusNone Status = iota
	// StatusInfo is neutral progress information.
	StatusInfo
	// StatusSuccess is a completed action.
	StatusSuccess
	// StatusWarning needs attention but did not fail.
	StatusWarning
	// StatusError is a failure.
	StatusError
)
