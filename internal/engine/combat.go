// Combat between two city-states: compute the deltas, resolve them, report.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/granary/internal/entropy"
	"github.com/talgya/granary/internal/errx"
	"github.com/talgya/granary/internal/social"
)

// Combat constants.
const (
	// AttackThreshold is the army ratio an attacker must strictly exceed to win.
	AttackThreshold = 1.75
	plunderShare    = 0.75 // of the defender's bushels, on attacker victory
	conquestShare   = 0.25 // of the defender's acres, on attacker victory
	tributeShare    = 0.25 // of the attacker's bushels, on defender victory
	defenderStrike  = 0.25 // defender army share bounding the attacker's losses
)

// Battle is the computed outcome of an attack. Deltas are added to each side.
type Battle struct {
	Attacker        string  `json:"attacker"`
	Defender        string  `json:"defender"`
	AttackerBushels float64 `json:"attacker_bushels_delta"`
	DefenderBushels float64 `json:"defender_bushels_delta"`
	AttackerAcres   int     `json:"attacker_acres_delta"`
	DefenderAcres   int     `json:"defender_acres_delta"`
	AttackerArmy    int     `json:"attacker_army_delta"`
	DefenderArmy    int     `json:"defender_army_delta"`
	Victor          string  `json:"victor"`
	Loser           string  `json:"loser"`
}

// Attack runs the three combat phases. Nothing changes if either side is
// unregistered.
func (w *World) Attack(ctx context.Context, attacker, defender string) (Battle, error) {
	if err := ctx.Err(); err != nil {
		return Battle{}, err
	}
	b, err := w.ComputeAttack(attacker, defender)
	if err != nil {
		return Battle{}, err
	}
	if err := w.ResolveAttack(b); err != nil {
		return Battle{}, err
	}
	w.ReportAttack(b)
	return b, nil
}

// ComputeAttack decides the battle without touching either side.
func (w *World) ComputeAttack(attacker, defender string) (Battle, error) {
	a, d, err := w.combatants(attacker, defender)
	if err != nil {
		return Battle{}, err
	}
	return computeBattle(a, d, w.rng), nil
}

func computeBattle(a, d *social.CityState, rng entropy.Source) Battle {
	b := Battle{Attacker: a.Name, Defender: d.Name}

	if float64(a.Army) > float64(d.Army)*AttackThreshold {
		plunder := max(d.Bushels, 0) * plunderShare
		land := int(float64(d.Acres) * conquestShare)
		b.AttackerBushels = plunder
		b.DefenderBushels = -plunder
		b.AttackerAcres = land
		b.DefenderAcres = -land
		b.AttackerArmy = -entropy.IntRange(rng, 0, a.Army)
		b.DefenderArmy = -d.Army
		b.Victor, b.Loser = a.Name, d.Name
		return b
	}

	tribute := max(a.Bushels, 0) * tributeShare
	b.AttackerBushels = -tribute
	b.DefenderBushels = tribute
	b.AttackerArmy = -entropy.IntRange(rng, 0, int(float64(d.Army)*defenderStrike))
	b.Victor, b.Loser = d.Name, a.Name
	return b
}

// ResolveAttack applies a computed battle to both sides.
func (w *World) ResolveAttack(b Battle) error {
	a, d, err := w.combatants(b.Attacker, b.Defender)
	if err != nil {
		return err
	}
	a.ApplyBattle(b.AttackerBushels, b.AttackerAcres, b.AttackerArmy)
	d.ApplyBattle(b.DefenderBushels, b.DefenderAcres, b.DefenderArmy)

	slog.Info("battle resolved",
		"year", w.year,
		"attacker", b.Attacker,
		"defender", b.Defender,
		"victor", b.Victor,
		"bushels", fmt.Sprintf("%.1f", b.AttackerBushels),
		"acres", b.AttackerAcres,
		"attacker_losses", -b.AttackerArmy,
		"defender_losses", -b.DefenderArmy,
	)
	return nil
}

// ReportAttack hands the outcome and both sides' status to the reporter.
func (w *World) ReportAttack(b Battle) {
	victor, ok1 := w.cities[b.Victor]
	loser, ok2 := w.cities[b.Loser]
	if !ok1 || !ok2 {
		return
	}
	w.reporter().Battle(BattleReport{Battle: b, Victor: victor.Status(), Loser: loser.Status()})
}

func (w *World) combatants(attacker, defender string) (*social.CityState, *social.CityState, error) {
	a, ok := w.cities[attacker]
	if !ok {
		return nil, nil, errx.ErrUnregisteredParty.WithMsg("attacker %q not registered", attacker)
	}
	d, ok := w.cities[defender]
	if !ok {
		return nil, nil, errx.ErrUnregisteredParty.WithMsg("defender %q not registered", defender)
	}
	if a == d {
		return nil, nil, errx.ErrInvalidDecision.WithMsg("%s cannot attack itself", attacker)
	}
	return a, d, nil
}
