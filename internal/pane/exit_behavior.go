package pane

import (
	"fmt"

	"github.com/loppo-llc/termmux/internal/config"
)

// exitTransition applies the deterministic exit-behavior table: killed
// suppresses the banner and forces StateDead regardless of policy,
// otherwise the configured ExitBehavior and clean-exit-code set decide
// whether to close, hold, or show a banner.
func exitTransition(policy config.ExitBehavior, messaging config.ExitBehaviorMessaging, cmdDescription string, exitCode int, clean bool, killed bool) (next ProcessState, banner string) {
	if killed {
		return StateDead, ""
	}

	switch policy {
	case config.ExitBehaviorClose:
		return StateDead, ""

	case config.ExitBehaviorCloseOnCleanExit:
		if clean {
			return StateDead, ""
		}
		return StateDeadPendingClose, bannerText(messaging, cmdDescription, false, exitCode)

	case config.ExitBehaviorHold:
		return StateDeadPendingClose, bannerText(messaging, cmdDescription, clean, exitCode)

	default:
		return StateDead, ""
	}
}

// bannerText renders the exit banner at the configured verbosity.
func bannerText(messaging config.ExitBehaviorMessaging, cmdDescription string, clean bool, exitCode int) string {
	switch messaging {
	case config.MessagingNone:
		return ""
	case config.MessagingTerse:
		if clean {
			return "[done]"
		}
		return fmt.Sprintf("[exit %d]", exitCode)
	case config.MessagingBrief:
		if clean {
			return fmt.Sprintf("Process %q completed.", cmdDescription)
		}
		return fmt.Sprintf("Process %q didn't exit cleanly (code %d).", cmdDescription, exitCode)
	case config.MessagingVerbose:
		fallthrough
	default:
		if clean {
			return fmt.Sprintf("Process %q completed with exit code %d.", cmdDescription, exitCode)
		}
		return fmt.Sprintf("Process %q didn't exit cleanly: exit code %d.", cmdDescription, exitCode)
	}
}
