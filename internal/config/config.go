// Package config holds the explicit configuration options the core
// recognizes. It is a plain struct tree with a Default() constructor,
// loadable from YAML.
package config

// ExitBehavior controls what happens to a LocalPane when its child process
// exits.
type ExitBehavior string

const (
	ExitBehaviorClose             ExitBehavior = "Close"
	ExitBehaviorCloseOnCleanExit  ExitBehavior = "CloseOnCleanExit"
	ExitBehaviorHold              ExitBehavior = "Hold"
)

// ExitBehaviorMessaging controls how verbose the exit banner is.
type ExitBehaviorMessaging string

const (
	MessagingVerbose ExitBehaviorMessaging = "Verbose"
	MessagingBrief   ExitBehaviorMessaging = "Brief"
	MessagingTerse   ExitBehaviorMessaging = "Terse"
	MessagingNone    ExitBehaviorMessaging = "None"
)

// Pane holds per-pane policy knobs.
type Pane struct {
	ExitBehavior                        ExitBehavior          `yaml:"exit_behavior"`
	ExitBehaviorMessaging                ExitBehaviorMessaging `yaml:"exit_behavior_messaging"`
	CleanExitCodes                      map[int]struct{}      `yaml:"-"`
	CleanExitCodesList                  []int                 `yaml:"clean_exit_codes"`
	SkipCloseConfirmationForProcessesNamed map[string]struct{} `yaml:"-"`
	SkipCloseConfirmationList            []string              `yaml:"skip_close_confirmation_for_processes_named"`
	LogUnknownEscapeSequences            bool                  `yaml:"log_unknown_escape_sequences"`
}

// Window holds window-level policy knobs.
type Window struct {
	SwitchToLastActiveTabWhenClosingTab bool `yaml:"switch_to_last_active_tab_when_closing_tab"`
}

// Tab holds tab-level policy knobs.
type Tab struct {
	UnzoomOnSwitchPane bool `yaml:"unzoom_on_switch_pane"`
}

// DomainSpawn holds the defaults a Domain falls back to when a spawn
// request does not specify a command or cwd.
type DomainSpawn struct {
	DefaultProg []string `yaml:"default_prog,omitempty"`
	DefaultCwd  string   `yaml:"default_cwd,omitempty"`
}

// Config is the full configuration tree.
type Config struct {
	Pane        Pane        `yaml:"pane"`
	Window      Window      `yaml:"window"`
	Tab         Tab         `yaml:"tab"`
	DomainSpawn DomainSpawn `yaml:"domain_spawn"`
}

// Default returns the configuration the daemon ships with: close the
// pane on any clean exit, switch to the last-active tab when closing
// the current one, and auto-unzoom so split/navigate keeps working.
func Default() *Config {
	return &Config{
		Pane: Pane{
			ExitBehavior:          ExitBehaviorCloseOnCleanExit,
			ExitBehaviorMessaging: MessagingBrief,
			CleanExitCodes:        map[int]struct{}{0: {}},
			CleanExitCodesList:    []int{0},
		},
		Window: Window{SwitchToLastActiveTabWhenClosingTab: true},
		Tab:    Tab{UnzoomOnSwitchPane: true},
	}
}

// normalize rebuilds the set-typed fields from their YAML-friendly list
// representation. Call after unmarshalling from YAML.
func (c *Config) normalize() {
	c.Pane.CleanExitCodes = make(map[int]struct{}, len(c.Pane.CleanExitCodesList))
	for _, code := range c.Pane.CleanExitCodesList {
		c.Pane.CleanExitCodes[code] = struct{}{}
	}
	c.Pane.SkipCloseConfirmationForProcessesNamed = make(map[string]struct{}, len(c.Pane.SkipCloseConfirmationList))
	for _, name := range c.Pane.SkipCloseConfirmationList {
		c.Pane.SkipCloseConfirmationForProcessesNamed[name] = struct{}{}
	}
}

// IsCleanExitCode reports whether code is in the configured clean set.
func (p Pane) IsCleanExitCode(code int) bool {
	_, ok := p.CleanExitCodes[code]
	return ok
}

// SkipsCloseConfirmation reports whether processName is in the configured
// skip set.
func (p Pane) SkipsCloseConfirmation(processName string) bool {
	_, ok := p.SkipCloseConfirmationForProcessesNamed[processName]
	return ok
}
