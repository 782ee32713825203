// Package config holds the detection thresholds, loaded through
// viper from defaults, an optional settings file, and CRISPRS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid config")

// Detection is the set of thresholds used by the candidate detector
// and the array assembler.
type Detection struct {
	// length of the k-mers used to seed repeat candidates
	KmerSize int `mapstructure:"kmer-size"`

	// minimum number of repeats in an array
	MinReps int `mapstructure:"min-reps"`

	// bounds on repeat and spacer length
	MinRepSize    int `mapstructure:"min-rep-size"`
	MaxRepSize    int `mapstructure:"max-rep-size"`
	MinSpacerSize int `mapstructure:"min-spacer-size"`
	MaxSpacerSize int `mapstructure:"max-spacer-size"`

	// maximum fractional deviation from the mean within one array,
	// of the repeat bases each copy shares with the others and of the
	// spacer lengths; 0 disables the check
	MaxRepLenDev    float64 `mapstructure:"max-rep-len-dev"`
	MaxSpacerLenDev float64 `mapstructure:"max-spacer-len-dev"`

	// candidates whose ranges are separated by at most this many
	// bases are merged into one region
	MergeGap int `mapstructure:"merge-gap"`
}

var defaults = map[string]interface{}{
	"kmer-size":          11,
	"min-reps":           3,
	"min-rep-size":       20,
	"max-rep-size":       70,
	"min-spacer-size":    20,
	"max-spacer-size":    70,
	"max-rep-len-dev":    0.1,
	"max-spacer-len-dev": 0.1,
	"merge-gap":          70,
}

// Default returns the built-in thresholds.
func Default() Detection {
	return Detection{
		KmerSize:        11,
		MinReps:         3,
		MinRepSize:      20,
		MaxRepSize:      70,
		MinSpacerSize:   20,
		MaxSpacerSize:   70,
		MaxRepLenDev:    0.1,
		MaxSpacerLenDev: 0.1,
		MergeGap:        70,
	}
}

// Load reads thresholds from the settings file at path (any format
// viper understands; skipped if path is empty) layered over the
// environment and the defaults.
func Load(path string) (Detection, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("crisprs")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Detection{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	var d Detection
	if err := v.Unmarshal(&d); err != nil {
		return Detection{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Detection{}, err
	}
	return d, nil
}

// Validate checks that the thresholds are usable together.
func (d Detection) Validate() error {
	switch {
	case d.KmerSize < 1:
		return fmt.Errorf("%w: kmer-size %d < 1", ErrInvalidConfig, d.KmerSize)
	case d.MinReps < 2:
		return fmt.Errorf("%w: min-reps %d < 2", ErrInvalidConfig, d.MinReps)
	case d.MinRepSize < 1 || d.MinRepSize > d.MaxRepSize:
		return fmt.Errorf("%w: repeat size range [%d,%d]", ErrInvalidConfig, d.MinRepSize, d.MaxRepSize)
	case d.MinSpacerSize < 0 || d.MinSpacerSize > d.MaxSpacerSize:
		return fmt.Errorf("%w: spacer size range [%d,%d]", ErrInvalidConfig, d.MinSpacerSize, d.MaxSpacerSize)
	case d.KmerSize > d.MaxRepSize:
		return fmt.Errorf("%w: kmer-size %d > max-rep-size %d", ErrInvalidConfig, d.KmerSize, d.MaxRepSize)
	case d.MaxRepLenDev < 0 || d.MaxSpacerLenDev < 0:
		return fmt.Errorf("%w: negative length deviation", ErrInvalidConfig)
	case d.MergeGap < 0:
		return fmt.Errorf("%w: merge-gap %d < 0", ErrInvalidConfig, d.MergeGap)
	}
	return nil
}

// Window is the widest span in which MinReps consecutive occurrences
// of one k-mer can belong to the same array.
func (d Detection) Window() int {
	return d.MinReps * (d.MaxRepSize + d.MaxSpacerSize)
}

// MinPeriod and MaxPeriod bound the distance between the starts of
// two adjacent repeats.
func (d Detection) MinPeriod() int { return d.MinRepSize + d.MinSpacerSize }

func (d Detection) MaxPeriod() int { return d.MaxRepSize + d.MaxSpacerSize }
