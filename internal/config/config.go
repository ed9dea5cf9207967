// Package config resolves command settings from flags, PERFGATE_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix   = "PERFGATE"
	DefaultFile = "perfgate"
)

// New binds flags to a fresh viper instance. An explicit file must exist; the
// default perfgate.yaml in the working directory is optional.
func New(flags *pflag.FlagSet, file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		return v, nil
	}
	v.SetConfigName(DefaultFile)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

type Logging struct {
	Level  string
	Format string
}

type Run struct {
	URL             string
	Path            string
	HealthPath      string
	SkipHealth      bool
	Requests        int
	Concurrency     int
	Prompts         string
	Output          string
	Timeout         time.Duration
	Deadline        time.Duration
	Rate            float64
	MaxErrorRate    float64
	MetricsTextfile string
	Pushgateway     string
	TraceOut        string
}

type Compare struct {
	Current     string
	Baseline    string
	SetBaseline bool
	SourceID    string
	Quiet       bool
	Format      string
	Out         string
}

type Remediate struct {
	Results        string
	Thresholds     string
	GenerateScript string
	Format         string
	SettleDelay    time.Duration
	StatusCommand  string
}

func LoadLogging(v *viper.Viper) Logging {
	return Logging{Level: v.GetString("log-level"), Format: v.GetString("log-format")}
}

func LoadRun(v *viper.Viper) Run {
	return Run{
		URL:             v.GetString("url"),
		Path:            v.GetString("path"),
		HealthPath:      v.GetString("health-path"),
		SkipHealth:      v.GetBool("skip-health"),
		Requests:        v.GetInt("num-requests"),
		Concurrency:     v.GetInt("concurrency"),
		Prompts:         v.GetString("prompts"),
		Output:          v.GetString("output"),
		Timeout:         v.GetDuration("timeout"),
		Deadline:        v.GetDuration("deadline"),
		Rate:            v.GetFloat64("rate"),
		MaxErrorRate:    v.GetFloat64("max-error-rate"),
		MetricsTextfile: v.GetString("metrics-textfile"),
		Pushgateway:     v.GetString("pushgateway"),
		TraceOut:        v.GetString("trace-out"),
	}
}

func LoadCompare(v *viper.Viper) Compare {
	return Compare{
		Current:     v.GetString("current"),
		Baseline:    v.GetString("baseline"),
		SetBaseline: v.GetBool("set-baseline"),
		SourceID:    v.GetString("source-id"),
		Quiet:       v.GetBool("quiet"),
		Format:      v.GetString("format"),
		Out:         v.GetString("out"),
	}
}

func LoadRemediate(v *viper.Viper) Remediate {
	return Remediate{
		Results:        v.GetString("results"),
		Thresholds:     v.GetString("thresholds"),
		GenerateScript: v.GetString("generate-script"),
		Format:         v.GetString("format"),
		SettleDelay:    v.GetDuration("settle-delay"),
		StatusCommand:  v.GetString("status-command"),
	}
}
