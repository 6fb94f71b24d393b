// Package dice implements dice-formula rolls and the d20 draw used for
// ability checks.
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Mode selects how a formula is rolled.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAdvantage
	ModeDisadvantage
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeAdvantage:
		return "advantage"
	case ModeDisadvantage:
		return "disadvantage"
	default:
		return "unknown"
	}
}

// ParseMode parses "normal", "advantage" or "disadvantage". An empty string
// is normal.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return ModeNormal, nil
	case "advantage", "adv":
		return ModeAdvantage, nil
	case "disadvantage", "dis":
		return ModeDisadvantage, nil
	default:
		return ModeNormal, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// ErrInvalidFormula indicates a formula is not of the form NdM, NdM+K or NdM-K.
var ErrInvalidFormula = errors.New("formula must look like 2d6, 2d6+1 or 1d20-2")

// ErrInvalidMode indicates an unknown roll mode.
var ErrInvalidMode = errors.New("mode must be normal, advantage or disadvantage")

const (
	maxCount = 100
	maxSides = 1000
)

var formulaPattern = regexp.MustCompile(`^(\d+)d(\d+)(?:([+-])(\d+))?$`)

// Formula is a parsed NdM+K expression.
type Formula struct {
	Count    int
	Sides    int
	Modifier int
}

// ParseFormula parses a formula such as "2d6+1".
func ParseFormula(s string) (Formula, error) {
	m := formulaPattern.FindStringSubmatch(strings.ToLower(strings.ReplaceAll(s, " ", "")))
	if m == nil {
		return Formula{}, fmt.Errorf("%w: %q", ErrInvalidFormula, s)
	}
	count, _ := strconv.Atoi(m[1])
	sides, _ := strconv.Atoi(m[2])
	if count < 1 || sides < 1 || count > maxCount || sides > maxSides {
		return Formula{}, fmt.Errorf("%w: %q", ErrInvalidFormula, s)
	}
	f := Formula{Count: count, Sides: sides}
	if m[3] != "" {
		mod, _ := strconv.Atoi(m[4])
		if m[3] == "-" {
			mod = -mod
		}
		f.Modifier = mod
	}
	return f, nil
}

// Min returns the lowest total the formula can produce.
func (f Formula) Min() int { return f.Count + f.Modifier }

// Max returns the highest total the formula can produce.
func (f Formula) Max() int { return f.Count*f.Sides + f.Modifier }

func (f Formula) String() string {
	switch {
	case f.Modifier > 0:
		return fmt.Sprintf("%dd%d+%d", f.Count, f.Sides, f.Modifier)
	case f.Modifier < 0:
		return fmt.Sprintf("%dd%d%d", f.Count, f.Sides, f.Modifier)
	default:
		return fmt.Sprintf("%dd%d", f.Count, f.Sides)
	}
}

// RollResult captures a formula roll. In advantage or disadvantage mode
// Sums holds both candidate sums and Kept the one used.
type RollResult struct {
	Formula Formula
	Mode    Mode
	Sums    []int
	Kept    int
	Total   int
}

// String renders the roll, e.g. "2d6+1 = 9" or "2d6+1 advantage [6 8] = 9".
func (r RollResult) String() string {
	if r.Mode == ModeNormal {
		return fmt.Sprintf("%s = %d", r.Formula, r.Total)
	}
	return fmt.Sprintf("%s %s %v = %d", r.Formula, r.Mode, r.Sums, r.Total)
}

// Roller draws dice from a pseudo-random source. It is safe for
// concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a roller seeded with seed. A zero seed uses the clock.
func NewRoller(seed int64) *Roller {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// NewRollerFromSource returns a roller drawing from src.
func NewRollerFromSource(src rand.Source) *Roller {
	return &Roller{rng: rand.New(src)}
}

// Die rolls a single die with the given number of sides.
func (r *Roller) Die(sides int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rollDie(r.rng, sides)
}

// D20 rolls a twenty-sided die.
func (r *Roller) D20() int {
	return r.Die(20)
}

// Roll evaluates a formula string in the given mode.
func (r *Roller) Roll(formula string, mode Mode) (RollResult, error) {
	f, err := ParseFormula(formula)
	if err != nil {
		return RollResult{}, err
	}
	return r.RollFormula(f, mode)
}

// RollFormula evaluates a parsed formula. Advantage keeps the higher of two
// sums, disadvantage the lower; the modifier is added once.
func (r *Roller) RollFormula(f Formula, mode Mode) (RollResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := RollResult{Formula: f, Mode: mode}
	switch mode {
	case ModeNormal:
		res.Sums = []int{sumDice(r.rng, f)}
		res.Kept = res.Sums[0]
	case ModeAdvantage, ModeDisadvantage:
		a, b := sumDice(r.rng, f), sumDice(r.rng, f)
		res.Sums = []int{a, b}
		res.Kept = max(a, b)
		if mode == ModeDisadvantage {
			res.Kept = min(a, b)
		}
	default:
		return RollResult{}, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	res.Total = res.Kept + f.Modifier
	return res, nil
}

func sumDice(rng *rand.Rand, f Formula) int {
	total := 0
	for i := 0; i < f.Count; i++ {
		total += rollDie(rng, f.Sides)
	}
	return total
}

func rollDie(rng *rand.Rand, sides int) int {
	return rng.Intn(sides) + 1
}
