package steward

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/granary/internal/engine"
)

// Orders are one city-state's decisions for one year. Unset fields fall
// through to the script's fallback.
type Orders struct {
	Year    int              `yaml:"year"`
	Land    *engine.LandDeal `yaml:"land,omitempty"`
	Plant   *int             `yaml:"plant,omitempty"`
	Feed    *float64         `yaml:"feed,omitempty"`
	Recruit *int             `yaml:"recruit,omitempty"`
	Attack  *string          `yaml:"attack,omitempty"`
}

// Script plays decisions written down ahead of time, keyed by city-state
// and year:
//
//	cities:
//	  Sumer:
//	    - year: 1
//	      land: {acres: 5, price: 18}
//	      plant: 40
//	      feed: 60
type Script struct {
	Cities map[string][]Orders `yaml:"cities"`

	// Fallback decides whatever the script leaves out. Nil means zero.
	Fallback engine.Decider `yaml:"-"`

	index map[string]map[int]Orders
}

// LoadScript reads a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScript decodes and checks a script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	s.index = make(map[string]map[int]Orders, len(s.Cities))
	for city, list := range s.Cities {
		byYear := make(map[int]Orders, len(list))
		for _, o := range list {
			if o.Year <= 0 {
				return nil, fmt.Errorf("city %s: year must be positive, got %d", city, o.Year)
			}
			if _, dup := byYear[o.Year]; dup {
				return nil, fmt.Errorf("city %s: year %d listed twice", city, o.Year)
			}
			byYear[o.Year] = o
		}
		s.index[city] = byYear
	}
	return &s, nil
}

func (s *Script) orders(t engine.Turn) (Orders, bool) {
	o, ok := s.index[t.Status.Name][t.Year]
	return o, ok
}

func (s *Script) LandDeal(ctx context.Context, t engine.Turn) (engine.LandDeal, error) {
	if o, ok := s.orders(t); ok && o.Land != nil {
		return *o.Land, nil
	}
	if s.Fallback != nil {
		return s.Fallback.LandDeal(ctx, t)
	}
	return engine.LandDeal{}, nil
}

func (s *Script) Plant(ctx context.Context, t engine.Turn) (int, error) {
	if o, ok := s.orders(t); ok && o.Plant != nil {
		return *o.Plant, nil
	}
	if s.Fallback != nil {
		return s.Fallback.Plant(ctx, t)
	}
	return 0, nil
}

func (s *Script) Feed(ctx context.Context, t engine.Turn) (float64, error) {
	if o, ok := s.orders(t); ok && o.Feed != nil {
		return *o.Feed, nil
	}
	if s.Fallback != nil {
		return s.Fallback.Feed(ctx, t)
	}
	return 0, nil
}

func (s *Script) Recruit(ctx context.Context, t engine.Turn) (int, error) {
	if o, ok := s.orders(t); ok && o.Recruit != nil {
		return *o.Recruit, nil
	}
	if s.Fallback != nil {
		return s.Fallback.Recruit(ctx, t)
	}
	return 0, nil
}

func (s *Script) Target(ctx context.Context, t engine.Turn) (string, error) {
	if o, ok := s.orders(t); ok && o.Attack != nil {
		return *o.Attack, nil
	}
	if s.Fallback != nil {
		return s.Fallback.Target(ctx, t)
	}
	return "", nil
}

func (s *Script) Rejected(ctx context.Context, t engine.Turn, err error) {
	slog.Warn("scripted decision rejected", "city", t.Status.Name, "year", t.Year, "error", err)
	if s.Fallback != nil {
		s.Fallback.Rejected(ctx, t, err)
	}
}
