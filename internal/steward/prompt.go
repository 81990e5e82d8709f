package steward

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/social"
)

// Prompt asks a person for every decision, re-asking until the answer is
// within bounds.
type Prompt struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompt reads answers from r and writes questions to w.
func NewPrompt(r io.Reader, w io.Writer) *Prompt {
	return &Prompt{in: bufio.NewScanner(r), out: w}
}

// ask writes question and returns the next trimmed line.
func (p *Prompt) ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}
		return "", fmt.Errorf("read answer: %w", io.ErrUnexpectedEOF)
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// number asks until the answer parses and lies in [lo, hi]. An empty answer
// takes def.
func (p *Prompt) number(ctx context.Context, question string, lo, hi, def float64) (float64, error) {
	for {
		line, err := p.ask(ctx, question)
		if err != nil {
			return 0, err
		}
		if line == "" {
			return def, nil
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil || math.IsNaN(v) {
			fmt.Fprintf(p.out, "%q is not a number.\n", line)
			continue
		}
		if v < lo || v > hi {
			fmt.Fprintf(p.out, "Choose between %.0f and %.0f.\n", lo, hi)
			continue
		}
		return v, nil
	}
}

func (p *Prompt) LandDeal(ctx context.Context, t engine.Turn) (engine.LandDeal, error) {
	fmt.Fprintf(p.out, "\n%s, year %d. Land trades at %.2f bushels an acre (surveyors quote %d).\n",
		t.Status.Name, t.Year, t.MarketPrice, t.LandQuote)
	fmt.Fprintf(p.out, "You may sell up to %d acres or buy up to %d.\n", -t.MinAcres, int(t.MaxAcres))
	acres, err := p.number(ctx, "Acres to buy (negative to sell) [0]: ", float64(t.MinAcres), math.Floor(t.MaxAcres), 0)
	if err != nil {
		return engine.LandDeal{}, err
	}
	if acres == 0 {
		return engine.LandDeal{}, nil
	}
	price, err := p.number(ctx, fmt.Sprintf("Price per acre [%.2f]: ", t.MarketPrice), 0.01, math.MaxFloat64, t.MarketPrice)
	if err != nil {
		return engine.LandDeal{}, err
	}
	return engine.LandDeal{Acres: int(acres), Price: price}, nil
}

func (p *Prompt) Plant(ctx context.Context, t engine.Turn) (int, error) {
	stock := math.Max(math.Floor(t.Status.Bushels), 0)
	fmt.Fprintf(p.out, "Planting every workable acre takes %d bushels; you hold %.0f.\n", t.SeedRequired, stock)
	v, err := p.number(ctx, fmt.Sprintf("Bushels to plant [%d]: ", min(t.SeedRequired, int(stock))), 0, stock, float64(min(t.SeedRequired, int(stock))))
	return int(v), err
}

func (p *Prompt) Feed(ctx context.Context, t engine.Turn) (float64, error) {
	stock := math.Max(t.Status.Bushels, 0)
	fmt.Fprintf(p.out, "Feeding %d people and %d soldiers takes %d bushels; you hold %.1f.\n",
		t.Status.Population, t.Status.Army, t.FoodRequired, stock)
	return p.number(ctx, fmt.Sprintf("Bushels to feed [%d]: ", t.FoodRequired), 0, stock, math.Min(float64(t.FoodRequired), stock))
}

func (p *Prompt) Recruit(ctx context.Context, t engine.Turn) (int, error) {
	fmt.Fprintf(p.out, "Your army numbers %d. Each recruit costs %d bushels.\n", t.Status.Army, social.SoldierCost)
	v, err := p.number(ctx, "Soldiers to recruit [0]: ", 0, float64(t.Status.Population), 0)
	return int(v), err
}

func (p *Prompt) Target(ctx context.Context, t engine.Turn) (string, error) {
	names := make([]string, 0, len(t.Rivals))
	for _, r := range t.Rivals {
		fmt.Fprintf(p.out, "  %s: army %d, %d acres\n", r.Name, r.Army, r.Acres)
		names = append(names, r.Name)
	}
	for {
		line, err := p.ask(ctx, "Attack whom? (blank for peace): ")
		if err != nil {
			return "", err
		}
		if line == "" {
			return "", nil
		}
		for _, n := range names {
			if strings.EqualFold(n, line) {
				return n, nil
			}
		}
		fmt.Fprintf(p.out, "No city-state named %q.\n", line)
	}
}

func (p *Prompt) Rejected(_ context.Context, _ engine.Turn, err error) {
	fmt.Fprintf(p.out, "That cannot be done: %v\n", err)
}
