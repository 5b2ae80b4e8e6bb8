package viewmodel

import (
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/upload"
)

// UploadKinds lists the upload paths in the order the page cycles them.
var UploadKinds = []model.UploadKind{
	model.UploadDealSummary,
	model.UploadRawFile,
	model.UploadSpreadsheet,
}

// KindTitle is the heading for an upload path.
func KindTitle(kind model.UploadKind) string {
	switch kind {
	case model.UploadDealSummary:
		return "Deal Summary"
	case model.UploadRawFile:
		return "Raw File to Storage"
	case model.UploadSpreadsheet:
		return "Monthly Spreadsheet"
	default:
		return string(kind)
	}
}

// NextKind returns the upload path after kind, wrapping around.
func NextKind(kind model.UploadKind) model.UploadKind {
	for i, k := range UploadKinds {
		if k == kind {
			return UploadKinds[(i+1)%len(UploadKinds)]
		}
	}
	return UploadKinds[0]
}

// UploadView is everything the upload page renders.
type UploadView struct {
	Storage  *model.StorageStatus
	Title    string
	Hint     string
	File     string
	Message  string
	Elapsed  string
	Kind     model.UploadKind
	Sent     int64
	Total    int64
	Phase    upload.Phase
	CanOpen  bool
	Checking bool
}

// NewUploadView reads an attempt. a may be nil before anything was picked.
func NewUploadView(kind model.UploadKind, a *upload.Attempt, policy upload.Policy) UploadView {
	view := UploadView{
		Kind:  kind,
		Title: KindTitle(kind),
		Hint:  policy.Hint(),
	}
	if a == nil {
		return view
	}
	view.Phase = a.Phase()
	view.Message = a.Message()
	if c := a.Candidate(); c != nil {
		view.File = c.Name
		view.Total = c.Size
	}
	return view
}

// Progress is the sent fraction of the file.
func (u UploadView) Progress() float64 {
	return Fraction(u.Sent, u.Total)
}

// Status is the tone of the page's message.
func (u UploadView) Status() Status {
	switch u.Phase {
	case upload.PhaseSucceeded:
		return StatusSuccess
	case upload.PhaseRejected, upload.PhaseFailed:
		return StatusError
	case upload.PhaseUploading, upload.PhaseValidating:
		return StatusInfo
	default:
		return StatusNone
	}
}

// StorageBlocked reports that raw uploads cannot work until storage is configured.
func (u UploadView) StorageBlocked() bool {
	return u.Kind == model.UploadRawFile && u.Storage != nil && !u.Storage.Configured
}

// Busy reports whether an upload is in flight.
func (u UploadView) Busy() bool {
	return u.Phase == upload.PhaseUploading
}
