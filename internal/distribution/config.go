package distribution

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

// SupportKind tags a [SupportConfiguration].
type SupportKind int

const (
	SupportNone SupportKind = iota
	SupportUtility
	SupportExpoBusser
)

func (k SupportKind) String() string {
	switch k {
	case SupportUtility:
		return "utility"
	case SupportExpoBusser:
		return "expo/busser"
	}
	return "none"
}

// SupportConfiguration is the support staffing of one shift. A shift has a
// utility role or expo and busser roles, never both. Allocations holds one
// entry per role that somebody worked.
type SupportConfiguration struct {
	Kind        SupportKind
	Allocations []shift.SupportAllocation
}

// String summarises cfg for logs.
func (cfg SupportConfiguration) String() string {
	return fmt.Sprintf("%s (%d role(s))", cfg.Kind, len(cfg.Allocations))
}

// PoolingMode says how server tips are shared.
type PoolingMode int

const (
	// Pooled servers split the tips left after tipout.
	Pooled PoolingMode = iota + 1
	// Individual servers keep their own tips minus their own tipout.
	Individual
)

func (m PoolingMode) String() string {
	if m == Pooled {
		return "pooled"
	}
	return "individual"
}

// Percentages are the tipout rates of each support role, as fractions of
// food sales.
type Percentages struct {
	Utility decimal.Decimal
	Expo    decimal.Decimal
	Busser  decimal.Decimal
}

// DefaultPercentages returns 5% utility, 1% expo and 4% busser.
func DefaultPercentages() Percentages {
	return Percentages{
		Utility: decimal.New(5, -2),
		Expo:    decimal.New(1, -2),
		Busser:  decimal.New(4, -2),
	}
}

// For returns the rate of role r.
func (p Percentages) For(r shift.Role) decimal.Decimal {
	switch r {
	case shift.RoleUtility:
		return p.Utility
	case shift.RoleExpo:
		return p.Expo
	case shift.RoleBusser:
		return p.Busser
	}
	return decimal.Zero
}

// Configure determines the support configuration from the support facts.
// Worked fractions are left unset.
func Configure(facts *shift.Facts, pct Percentages) (SupportConfiguration, error) {
	util := facts.ByRole(shift.RoleUtility)
	expo := facts.ByRole(shift.RoleExpo)
	busser := facts.ByRole(shift.RoleBusser)

	switch {
	case len(util) > 0 && len(expo)+len(busser) > 0:
		return SupportConfiguration{}, shift.Errorf(shift.StageDistribution, shift.ErrConfiguration,
			"utility and expo/busser both worked; a shift has one or the other")
	case len(util) > 0:
		return SupportConfiguration{
			Kind:        SupportUtility,
			Allocations: []shift.SupportAllocation{allocation(shift.RoleUtility, pct, util)},
		}, nil
	case len(expo)+len(busser) > 0:
		cfg := SupportConfiguration{Kind: SupportExpoBusser}
		if len(expo) > 0 {
			cfg.Allocations = append(cfg.Allocations, allocation(shift.RoleExpo, pct, expo))
		}
		if len(busser) > 0 {
			cfg.Allocations = append(cfg.Allocations, allocation(shift.RoleBusser, pct, busser))
		}
		return cfg, nil
	}
	return SupportConfiguration{Kind: SupportNone}, nil
}

func allocation(r shift.Role, pct Percentages, facts []shift.Fact) shift.SupportAllocation {
	names := make([]string, len(facts))
	for i, f := range facts {
		names[i] = f.Employee
	}
	return shift.SupportAllocation{Role: r, Percentage: pct.For(r), Participants: names}
}

// Mode returns the pooling mode for facts. Two or more servers pool unless
// the transcript said they kept their tips; a single server never pools.
func Mode(facts *shift.Facts) PoolingMode {
	if len(facts.ByRole(shift.RoleServer)) >= 2 && !facts.KeepIndividually {
		return Pooled
	}
	return Individual
}
