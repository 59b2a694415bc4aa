package out

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"uair/internal/modules/timer/domain"
	timerout "uair/internal/modules/timer/port/out"
	apperrors "uair/internal/platform/errors"
	"uair/internal/platform/humantime"
)

const (
	defaultName             = "Work"
	defaultDuration         = 25 * time.Minute
	defaultCommand          = "notify-send 'Session Completed!'"
	defaultFormat           = "{time}\n"
	defaultTimeFormat       = "%*-Yyear%P %*-Bmonth%P %*-Dday%P %*-Hh %*-Mm %*-Ss"
	defaultPausedStateText  = "⏸"
	defaultResumedStateText = "⏵"
)

// durationValue accepts "25m", "1h 30m" or a bare number of seconds.
type durationValue time.Duration

func (d *durationValue) UnmarshalTOML(v any) error {
	switch raw := v.(type) {
	case string:
		parsed, err := humantime.Parse(raw)
		if err != nil {
			return err
		}
		*d = durationValue(parsed)
	case int64:
		if raw < 0 {
			return fmt.Errorf("negative duration %d", raw)
		}
		*d = durationValue(time.Duration(raw) * time.Second)
	default:
		return fmt.Errorf("unsupported duration value %v", v)
	}
	return nil
}

func (d *durationValue) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := humantime.Parse(node.Value)
	if err != nil {
		return err
	}
	*d = durationValue(parsed)
	return nil
}

type fileOverride struct {
	Format           *string `toml:"format" yaml:"format"`
	TimeFormat       *string `toml:"time_format" yaml:"time_format"`
	PausedStateText  *string `toml:"paused_state_text" yaml:"paused_state_text"`
	ResumedStateText *string `toml:"resumed_state_text" yaml:"resumed_state_text"`
}

type fileSession struct {
	ID               *string                 `toml:"id" yaml:"id"`
	Name             *string                 `toml:"name" yaml:"name"`
	Duration         *durationValue          `toml:"duration" yaml:"duration"`
	Command          *string                 `toml:"command" yaml:"command"`
	Format           *string                 `toml:"format" yaml:"format"`
	TimeFormat       *string                 `toml:"time_format" yaml:"time_format"`
	Autostart        *bool                   `toml:"autostart" yaml:"autostart"`
	PausedStateText  *string                 `toml:"paused_state_text" yaml:"paused_state_text"`
	ResumedStateText *string                 `toml:"resumed_state_text" yaml:"resumed_state_text"`
	Overrides        map[string]fileOverride `toml:"overrides" yaml:"overrides"`
}

type fileConfig struct {
	LoopOnEnd       bool          `toml:"loop_on_end" yaml:"loop_on_end"`
	Iterations      *int64        `toml:"iterations" yaml:"iterations"`
	PauseAtStart    bool          `toml:"pause_at_start" yaml:"pause_at_start"`
	StartupText     string        `toml:"startup_text" yaml:"startup_text"`
	IterationPolicy string        `toml:"iteration_policy" yaml:"iteration_policy"`
	Defaults        fileSession   `toml:"defaults" yaml:"defaults"`
	Sessions        []fileSession `toml:"sessions" yaml:"sessions"`
}

// FileConfigLoader reads TOML, or YAML when the file ends in .yaml or .yml.
type FileConfigLoader struct {
	logger *log.Logger
}

func NewFileConfigLoader(logger *log.Logger) timerout.ConfigLoader {
	return &FileConfigLoader{logger: logger}
}

func (l *FileConfigLoader) Load(_ context.Context, path string) (domain.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var file fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return domain.Config{}, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidConfig, path, err)
		}
	default:
		md, err := toml.Decode(string(raw), &file)
		if err != nil {
			return domain.Config{}, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidConfig, path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 && l.logger != nil {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			l.logger.Warn("ignoring unknown config keys", "path", path, "keys", strings.Join(keys, ","))
		}
	}

	cfg, err := file.build()
	if err != nil {
		return domain.Config{}, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

func (f fileConfig) build() (domain.Config, error) {
	limit, err := f.limit()
	if err != nil {
		return domain.Config{}, err
	}
	policy := domain.PolicyClamp
	if f.IterationPolicy != "" {
		policy = domain.IterationPolicy(f.IterationPolicy)
	}

	cfg := domain.Config{
		Limit:        limit,
		PauseAtStart: f.PauseAtStart,
		StartupText:  f.StartupText,
		Policy:       policy,
		Sessions:     make([]domain.Session, 0, len(f.Sessions)),
	}
	for i, s := range f.Sessions {
		cfg.Sessions = append(cfg.Sessions, s.build(i, f.Defaults))
	}
	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// limit: looping with a non-zero (or absent) iteration count never ends;
// otherwise the count applies, defaulting to a single pass.
func (f fileConfig) limit() (domain.IterationLimit, error) {
	if f.Iterations != nil && *f.Iterations < 0 {
		return domain.IterationLimit{}, fmt.Errorf("iterations must not be negative")
	}
	switch {
	case f.LoopOnEnd && (f.Iterations == nil || *f.Iterations != 0):
		return domain.Unbounded(), nil
	case f.Iterations != nil:
		return domain.Bounded(int(*f.Iterations)), nil
	default:
		return domain.Bounded(1), nil
	}
}

func (s fileSession) build(index int, defaults fileSession) domain.Session {
	session := domain.Session{
		ID:               strconv.Itoa(index),
		Name:             pick(s.Name, defaults.Name, defaultName),
		Duration:         defaultDuration,
		Command:          pick(s.Command, defaults.Command, defaultCommand),
		Format:           pick(s.Format, defaults.Format, defaultFormat),
		TimeFormat:       pick(s.TimeFormat, defaults.TimeFormat, defaultTimeFormat),
		PausedStateText:  pick(s.PausedStateText, defaults.PausedStateText, defaultPausedStateText),
		ResumedStateText: pick(s.ResumedStateText, defaults.ResumedStateText, defaultResumedStateText),
		Overrides:        mergeOverrides(s.Overrides, defaults.Overrides),
	}
	if s.ID != nil {
		session.ID = *s.ID
	}
	switch {
	case s.Duration != nil:
		session.Duration = time.Duration(*s.Duration)
	case defaults.Duration != nil:
		session.Duration = time.Duration(*defaults.Duration)
	}
	switch {
	case s.Autostart != nil:
		session.Autostart = *s.Autostart
	case defaults.Autostart != nil:
		session.Autostart = *defaults.Autostart
	}
	return session
}

// mergeOverrides layers session overrides over default ones field by field.
func mergeOverrides(session, defaults map[string]fileOverride) map[string]domain.Override {
	names := make(map[string]struct{}, len(session)+len(defaults))
	for name := range defaults {
		names[name] = struct{}{}
	}
	for name := range session {
		names[name] = struct{}{}
	}
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]domain.Override, len(names))
	for name := range names {
		s, d := session[name], defaults[name]
		out[name] = domain.Override{
			Format:           first(s.Format, d.Format),
			TimeFormat:       first(s.TimeFormat, d.TimeFormat),
			PausedStateText:  first(s.PausedStateText, d.PausedStateText),
			ResumedStateText: first(s.ResumedStateText, d.ResumedStateText),
		}
	}
	return out
}

func pick(value, fallback *string, def string) string {
	if value != nil {
		return *value
	}
	if fallback != nil {
		return *fallback
	}
	return def
}

func first(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
