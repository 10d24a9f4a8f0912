// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Target    TargetConfig    `mapstructure:"target" yaml:"target"`
	Selectors SelectorsConfig `mapstructure:"selectors" yaml:"selectors"`
	Schedule  ScheduleConfig  `mapstructure:"schedule" yaml:"schedule"`
	Sinks     SinksConfig     `mapstructure:"sinks" yaml:"sinks"`
}

// LoggerConfig configures the global zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the chromedp allocator and session timeouts.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	DisableGPU        bool          `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// TargetConfig identifies the site and the fixed cascading selections.
type TargetConfig struct {
	URL          string `mapstructure:"url" yaml:"url"`
	TypeOption   string `mapstructure:"type_option" yaml:"type_option"`
	RegionOption string `mapstructure:"region_option" yaml:"region_option"`
	// Units restricts the run to an explicit subset. Empty means all units
	// discovered in the unit dropdown at run start.
	Units []string `mapstructure:"units" yaml:"units"`
	// DateStrategy is "calendar", "stepper" or "auto".
	DateStrategy string `mapstructure:"date_strategy" yaml:"date_strategy"`
	// CellsPerMinute paces the (unit, date) loop so the site is not hammered.
	CellsPerMinute int `mapstructure:"cells_per_minute" yaml:"cells_per_minute"`
	// RetryAttempts caps how often a failed date-targeting attempt is redone.
	RetryAttempts int           `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// SelectorsConfig carries every CSS selector and XPath the navigator touches.
// They are data on purpose: a markup change on the site is a config edit, not
// a code change.
type SelectorsConfig struct {
	OverlayBackdrop string `mapstructure:"overlay_backdrop" yaml:"overlay_backdrop"`

	TypeTrigger   string `mapstructure:"type_trigger" yaml:"type_trigger"`
	RegionTrigger string `mapstructure:"region_trigger" yaml:"region_trigger"`
	UnitTrigger   string `mapstructure:"unit_trigger" yaml:"unit_trigger"`
	OptionPanel   string `mapstructure:"option_panel" yaml:"option_panel"`
	Option        string `mapstructure:"option" yaml:"option"`
	ConfirmButton string `mapstructure:"confirm_button" yaml:"confirm_button"`

	DateLabel          string `mapstructure:"date_label" yaml:"date_label"`
	CalendarTrigger    string `mapstructure:"calendar_trigger" yaml:"calendar_trigger"`
	CalendarGrid       string `mapstructure:"calendar_grid" yaml:"calendar_grid"`
	CalendarHeader     string `mapstructure:"calendar_header" yaml:"calendar_header"`
	CalendarPrev       string `mapstructure:"calendar_prev" yaml:"calendar_prev"`
	CalendarNext       string `mapstructure:"calendar_next" yaml:"calendar_next"`
	CalendarCell       string `mapstructure:"calendar_cell" yaml:"calendar_cell"`
	CalendarCellButton string `mapstructure:"calendar_cell_button" yaml:"calendar_cell_button"`
	StepPrev           string `mapstructure:"step_prev" yaml:"step_prev"`
	StepNext           string `mapstructure:"step_next" yaml:"step_next"`

	LoadingIndicators []string `mapstructure:"loading_indicators" yaml:"loading_indicators"`
	ResultList        string   `mapstructure:"result_list" yaml:"result_list"`
	ResultItem        string   `mapstructure:"result_item" yaml:"result_item"`

	// XPaths evaluated against the result list HTML during extraction.
	EntryXPath            string `mapstructure:"entry_xpath" yaml:"entry_xpath"`
	EntrySessionXPath     string `mapstructure:"entry_session_xpath" yaml:"entry_session_xpath"`
	EntryProcessXPath     string `mapstructure:"entry_process_xpath" yaml:"entry_process_xpath"`
	EntryDescriptionXPath string `mapstructure:"entry_description_xpath" yaml:"entry_description_xpath"`
}

// ScheduleConfig overrides the date window relative to "now".
type ScheduleConfig struct {
	LeadDays         int `mapstructure:"lead_days" yaml:"lead_days"`
	HorizonMonths    int `mapstructure:"horizon_months" yaml:"horizon_months"`
	HorizonExtraDays int `mapstructure:"horizon_extra_days" yaml:"horizon_extra_days"`
}

// SinksConfig configures the output destinations.
type SinksConfig struct {
	OutputDir string     `mapstructure:"output_dir" yaml:"output_dir"`
	Database  DBConfig   `mapstructure:"database" yaml:"database"`
	Mail      MailConfig `mapstructure:"mail" yaml:"mail"`
}

// DBConfig holds the Postgres connection settings. An empty URL disables the
// store sink entirely.
type DBConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// MailConfig holds the SMTP notifier settings. An empty host disables it.
type MailConfig struct {
	Host     string   `mapstructure:"host" yaml:"host"`
	Port     int      `mapstructure:"port" yaml:"port"`
	Username string   `mapstructure:"username" yaml:"username"`
	Password string   `mapstructure:"password" yaml:"password"`
	From     string   `mapstructure:"from" yaml:"from"`
	To       []string `mapstructure:"to" yaml:"to"`
}

// Load unmarshals the configuration from the supplied viper instance after
// applying defaults.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the run cannot start from.
func (c *Config) Validate() error {
	if c.Target.URL == "" {
		return fmt.Errorf("target.url is required")
	}
	switch c.Target.DateStrategy {
	case "calendar", "stepper", "auto":
	default:
		return fmt.Errorf("target.date_strategy must be calendar, stepper or auto, got %q", c.Target.DateStrategy)
	}
	if c.Schedule.LeadDays < 0 || c.Schedule.HorizonMonths < 0 || c.Schedule.HorizonExtraDays < 0 {
		return fmt.Errorf("schedule window offsets must not be negative")
	}
	if c.Sinks.Mail.Host != "" && len(c.Sinks.Mail.To) == 0 {
		return fmt.Errorf("sinks.mail.to is required when sinks.mail.host is set")
	}
	return nil
}

// SetDefaults initializes default values for all configuration parameters.
// The selector defaults match the PJe audiências pauta as deployed today.
func SetDefaults(v *viper.Viper) {
	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "boaventura")
	v.SetDefault("logger.log_file", "boaventura.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// Browser defaults
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.action_timeout", "30s")

	// Target defaults
	v.SetDefault("target.type_option", "Justiça do Trabalho")
	v.SetDefault("target.region_option", "TRT da 1ª Região")
	v.SetDefault("target.date_strategy", "auto")
	v.SetDefault("target.cells_per_minute", 12)
	v.SetDefault("target.retry_attempts", 3)
	v.SetDefault("target.retry_delay", "2s")

	// Selector defaults
	v.SetDefault("selectors.overlay_backdrop", ".cdk-overlay-backdrop")
	v.SetDefault("selectors.type_trigger", "mat-select[formcontrolname='tipoJustica']")
	v.SetDefault("selectors.region_trigger", "mat-select[formcontrolname='regional']")
	v.SetDefault("selectors.unit_trigger", "mat-select[formcontrolname='vara']")
	v.SetDefault("selectors.option_panel", ".mat-select-panel")
	v.SetDefault("selectors.option", "mat-option")
	v.SetDefault("selectors.confirm_button", "button.confirmar-selecao")
	v.SetDefault("selectors.date_label", "button.data-selecionada")
	v.SetDefault("selectors.calendar_trigger", "button.abrir-calendario")
	v.SetDefault("selectors.calendar_grid", "mat-calendar")
	v.SetDefault("selectors.calendar_header", ".mat-calendar-period-button")
	v.SetDefault("selectors.calendar_prev", ".mat-calendar-previous-button")
	v.SetDefault("selectors.calendar_next", ".mat-calendar-next-button")
	v.SetDefault("selectors.calendar_cell", ".mat-calendar-body-cell")
	v.SetDefault("selectors.calendar_cell_button", ".mat-calendar-body-cell button")
	v.SetDefault("selectors.step_prev", "button.dia-anterior")
	v.SetDefault("selectors.step_next", "button.proximo-dia")
	v.SetDefault("selectors.loading_indicators", []string{
		"mat-spinner",
		".loading-overlay",
		".mat-progress-bar",
	})
	v.SetDefault("selectors.result_list", ".lista-audiencias")
	v.SetDefault("selectors.result_item", ".lista-audiencias .audiencia-item")
	v.SetDefault("selectors.entry_xpath", "//*[contains(@class,'audiencia-item')]")
	v.SetDefault("selectors.entry_session_xpath", ".//*[contains(@class,'horario-situacao')]")
	v.SetDefault("selectors.entry_process_xpath", ".//b")
	v.SetDefault("selectors.entry_description_xpath", ".//*[contains(@class,'descricao')]")

	// Schedule defaults
	v.SetDefault("schedule.lead_days", 7)
	v.SetDefault("schedule.horizon_months", 2)
	v.SetDefault("schedule.horizon_extra_days", 10)

	// Sink defaults
	v.SetDefault("sinks.output_dir", "out")
	v.SetDefault("sinks.mail.port", 587)
}
