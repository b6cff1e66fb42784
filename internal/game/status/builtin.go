package status

// BuiltinDefinitions returns the stock status definitions. Each call returns
// fresh values.
func BuiltinDefinitions() []*Definition {
	return []*Definition{
		{
			ID: "burn", Name: "Burning", Kind: KindDebuff, Stacking: StackAdd,
			MaxStacks: 5, TickEvery: 1, DefaultDuration: 3, BasePotency: 2,
			TickKind: TickDamage,
		},
		{
			ID: "poison", Name: "Poisoned", Kind: KindDebuff, Stacking: StackAdd,
			MaxStacks: 10, TickEvery: 1, DefaultDuration: 4, BasePotency: 1,
			TickKind: TickDamage,
		},
		{
			ID: "bleed", Name: "Bleeding", Kind: KindDebuff, Stacking: StackIndependent,
			MaxStacks: 5, TickEvery: 1, DefaultDuration: 3, BasePotency: 2,
			TickKind: TickDamage,
		},
		{
			ID: "regen", Name: "Regenerating", Kind: KindBuff, Stacking: StackRefresh,
			MaxStacks: 1, TickEvery: 1, DefaultDuration: 3, BasePotency: 3,
			TickKind: TickRestore, TickPool: "hp",
		},
		{
			ID: "haste", Name: "Hasted", Kind: KindBuff, Stacking: StackRefresh,
			MaxStacks: 1, DefaultDuration: 2,
			Effects: Derived{ActionSpeedPct: -0.5},
		},
		{
			ID: "slow", Name: "Slowed", Kind: KindDebuff, Stacking: StackRefresh,
			MaxStacks: 1, DefaultDuration: 2,
			Effects: Derived{ActionSpeedPct: 0.5, MoveAPDelta: 10},
		},
		{
			ID: "weaken", Name: "Weakened", Kind: KindDebuff, Stacking: StackAdd,
			MaxStacks: 3, DefaultDuration: 3,
			Effects: Derived{DamageDealtMult: map[string]float64{AllTypes: -0.1}},
		},
		{
			ID: "vulnerable", Name: "Vulnerable", Kind: KindDebuff, Stacking: StackRefresh,
			MaxStacks: 1, DefaultDuration: 2,
			Effects: Derived{DamageTakenMult: map[string]float64{AllTypes: 0.25}},
		},
		{
			ID: "stun", Name: "Stunned", Kind: KindDebuff, Stacking: StackRefresh,
			MaxStacks: 1, DefaultDuration: 1, Control: true, PreventsActions: true,
		},
		{
			ID: "chill", Name: "Chilled", Kind: KindDebuff, Stacking: StackAdd,
			MaxStacks: 5, DefaultDuration: 3, Control: true,
			Effects: Derived{
				MoveAPDelta: 5,
				ResistDelta: map[string]float64{"cold": -0.05},
			},
		},
		{
			ID: "focus", Name: "Focused", Kind: KindBuff, Stacking: StackAdd,
			MaxStacks: 3, DefaultDuration: 3,
			Effects: Derived{AccuracyFlat: 0.05, CritChancePct: 0.05},
		},
	}
}

// DefaultRegistry returns a Registry of the built-in definitions.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinDefinitions()...)
	if err != nil {
		panic("status: invalid built-in definitions: " + err.Error())
	}
	return r
}
