package pv

// Status is the alarm condition of a process variable.
// Values follow the EPICS alarm status menu.
type Status uint16

const (
	StatusNoAlarm Status = iota
	StatusRead
	StatusWrite
	StatusHiHi
	StatusHigh
	StatusLoLo
	StatusLow
	StatusState
	StatusCOS
	StatusComm
	StatusTimeout
	StatusHwLimit
	StatusCalc
	StatusScan
	StatusLink
	StatusSoft
	StatusBadSub
	StatusUDF
	StatusDisable
	StatusSimm
	StatusReadAccess
	StatusWriteAccess
)

var statusNames = [...]string{
	StatusNoAlarm:     "NO_ALARM",
	StatusRead:        "READ",
	StatusWrite:       "WRITE",
	StatusHiHi:        "HIHI",
	StatusHigh:        "HIGH",
	StatusLoLo:        "LOLO",
	StatusLow:         "LOW",
	StatusState:       "STATE",
	StatusCOS:         "COS",
	StatusComm:        "COMM",
	StatusTimeout:     "TIMEOUT",
	StatusHwLimit:     "HWLIMIT",
	StatusCalc:        "CALC",
	StatusScan:        "SCAN",
	StatusLink:        "LINK",
	StatusSoft:        "SOFT",
	StatusBadSub:      "BAD_SUB",
	StatusUDF:         "UDF",
	StatusDisable:     "DISABLE",
	StatusSimm:        "SIMM",
	StatusReadAccess:  "READ_ACCESS",
	StatusWriteAccess: "WRITE_ACCESS",
}

// String returns the EPICS name of the status.
func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "UNKNOWN"
}

// Severity is the alarm severity of a process variable.
type Severity uint8

const (
	SeverityNoAlarm Severity = iota
	SeverityMinor
	SeverityMajor
	SeverityInvalid
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityNoAlarm:
		return "NO_ALARM"
	case SeverityMinor:
		return "MINOR"
	case SeverityMajor:
		return "MAJOR"
	case SeverityInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}
