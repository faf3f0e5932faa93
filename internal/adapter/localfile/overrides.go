package localfile

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
)

// manualData is the layout of manual_data.json.
type manualData struct {
	Deceased  map[string]int64 `json:"deceased"`
	Intensive map[string]int64 `json:"intensive"`
}

// OverrideFiles implements pipeline.OverrideSource over deaths.json and
// manual_data.json. An empty path skips that file.
type OverrideFiles struct {
	deathsPath string
	manualPath string
	logger     *slog.Logger
}

// NewOverrideFiles creates an override source.
func NewOverrideFiles(deathsPath, manualPath string, logger *slog.Logger) *OverrideFiles {
	return &OverrideFiles{deathsPath: deathsPath, manualPath: manualPath, logger: logger}
}

// LoadOverrides reads both files. Deceased entries of manual_data.json win
// over deaths.json for the same date.
func (o *OverrideFiles) LoadOverrides(ctx context.Context) (domain.Overrides, error) {
	if err := ctx.Err(); err != nil {
		return domain.Overrides{}, err
	}
	out := domain.Overrides{Deceased: domain.Override{}, Intensive: domain.Override{}}

	if o.deathsPath != "" {
		var raw map[string]int64
		if err := readJSON(o.deathsPath, &raw); err != nil {
			return domain.Overrides{}, err
		}
		deaths, err := domain.ParseOverride(domain.FeedDeaths, raw)
		if err != nil {
			return domain.Overrides{}, err
		}
		for k, v := range deaths {
			out.Deceased[k] = v
		}
	}

	if o.manualPath != "" {
		var raw manualData
		if err := readJSON(o.manualPath, &raw); err != nil {
			return domain.Overrides{}, err
		}
		deceased, err := domain.ParseOverride(domain.FeedManualData, raw.Deceased)
		if err != nil {
			return domain.Overrides{}, err
		}
		for k, v := range deceased {
			if prev, ok := out.Deceased[k]; ok && prev != v {
				o.logger.Warn("manual deceased value replaces deaths.json", "date", k, "deaths", prev, "manual", v)
			}
			out.Deceased[k] = v
		}
		if out.Intensive, err = domain.ParseOverride(domain.FeedManualData, raw.Intensive); err != nil {
			return domain.Overrides{}, err
		}
	}

	o.logger.Debug("overrides loaded", "deceased", len(out.Deceased), "intensive", len(out.Intensive))
	return out, nil
}
