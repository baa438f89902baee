package navigation

// State is a step of the portal navigation sequence
type State int

const (
	StateNew State = iota
	StateStart
	StateCategorySelected
	StateItemsSelected
	StateCriteriaAdded
	StateDateRangeSet
	StateExtractionSubmitted
	StateResultWindowActive
	StateDownloadLinkObtained
	StateClosed
	StateFailed
)

var stateNames = map[State]string{
	StateNew:                  "new",
	StateStart:                "start",
	StateCategorySelected:     "category_selected",
	StateItemsSelected:        "items_selected",
	StateCriteriaAdded:        "criteria_added",
	StateDateRangeSet:         "date_range_set",
	StateExtractionSubmitted:  "extraction_submitted",
	StateResultWindowActive:   "result_window_active",
	StateDownloadLinkObtained: "download_link_obtained",
	StateClosed:               "closed",
	StateFailed:               "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// WindowRole tags a tracked browser window
type WindowRole string

const (
	RoleMain     WindowRole = "main"
	RoleResults  WindowRole = "results"
	RoleDownload WindowRole = "download"
)

// Window is a role-tagged window handle returned by the session
type Window struct {
	Role   WindowRole
	Handle WindowHandle
}
