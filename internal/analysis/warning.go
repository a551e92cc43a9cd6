package analysis

// Warning is a closed enumeration of form-feedback conditions. Each
// exercise emits a fixed subset; priority rank and debounce counters are
// keyed by these values rather than by message strings, so a typo cannot
// silently detach a warning from its counter.
type Warning int

const (
	WarnNone Warning = iota

	// Shared
	WarnOutOfFrame

	// Squat
	WarnBackSevere
	WarnBackRounding
	WarnKneeTravel
	WarnSquatDepth
	WarnSquatLockout

	// Push-up
	WarnBodySag
	WarnCoreLoose
	WarnHipPike
	WarnPushupDepth
	WarnPushupLockout
)

// Message returns the user-facing coaching cue for the warning.
func (w Warning) Message() string {
	switch w {
	case WarnOutOfFrame:
		return "Get your full body in frame"
	case WarnBackSevere:
		return "Keep your chest up!"
	case WarnBackRounding:
		return "Don't round your back"
	case WarnKneeTravel:
		return "Keep knees behind toes"
	case WarnSquatDepth:
		return "Squat deeper"
	case WarnSquatLockout:
		return "Stand tall at the top"
	case WarnBodySag:
		return "Keep body straight!"
	case WarnCoreLoose:
		return "Tighten your core"
	case WarnHipPike:
		return "Don't pike hips up!"
	case WarnPushupDepth:
		return "Lower your chest more"
	case WarnPushupLockout:
		return "Full lockout at top"
	default:
		return ""
	}
}

// Level is the severity attached to the externally visible feedback.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)
