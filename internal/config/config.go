// Package config provides Viper-based configuration loading for the gauntlet
// binaries.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/gauntlet/internal/game/combat"
	"github.com/cory-johannsen/gauntlet/internal/game/item"
	"github.com/cory-johannsen/gauntlet/internal/game/resource"
	"github.com/cory-johannsen/gauntlet/internal/game/tempo"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// RegenConfig is the passive per-turn regeneration of each pool.
type RegenConfig struct {
	HP      float64 `mapstructure:"hp"`
	Stamina float64 `mapstructure:"stamina"`
	Mana    float64 `mapstructure:"mana"`
}

// CombatConfig holds the combat tuning constants.
type CombatConfig struct {
	BaseAPGain        int         `mapstructure:"base_ap_gain"`
	APCap             int         `mapstructure:"ap_cap"`
	PassiveRegen      RegenConfig `mapstructure:"passive_regen"`
	AttunementCap     int         `mapstructure:"attunement_cap"`
	AttunementStep    float64     `mapstructure:"attunement_step"`
	BaseHitChance     float64     `mapstructure:"base_hit_chance"`
	CritMultiplier    float64     `mapstructure:"crit_multiplier"`
	MaxActionsPerTurn int         `mapstructure:"max_actions_per_turn"`
}

// Engine converts c into the combat package's Config.
func (c CombatConfig) Engine() combat.Config {
	return combat.Config{
		Tempo: tempo.Config{BaseAPGain: c.BaseAPGain, APCap: c.APCap},
		Resource: resource.Config{PassiveRegen: map[item.Pool]float64{
			item.PoolHP:      c.PassiveRegen.HP,
			item.PoolStamina: c.PassiveRegen.Stamina,
			item.PoolMana:    c.PassiveRegen.Mana,
		}},
		AttunementCap:     c.AttunementCap,
		AttunementStep:    c.AttunementStep,
		BaseHitChance:     c.BaseHitChance,
		CritMultiplier:    c.CritMultiplier,
		MaxActionsPerTurn: c.MaxActionsPerTurn,
	}
}

// ContentConfig locates the YAML and Lua content directories.
type ContentConfig struct {
	ItemsDir    string `mapstructure:"items_dir"`
	StatusesDir string `mapstructure:"statuses_dir"`
	ActorsDir   string `mapstructure:"actors_dir"`
	ScriptsDir  string `mapstructure:"scripts_dir"`
}

// ScriptingConfig holds Lua sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit is the opcode budget of one hook call; 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// SimulationConfig drives cmd/combatsim.
type SimulationConfig struct {
	Seed      uint64 `mapstructure:"seed"`
	MaxRounds int    `mapstructure:"max_rounds"`
	Runs      int    `mapstructure:"runs"`
	// Workers bounds concurrent encounters; 0 means one per CPU.
	Workers int `mapstructure:"workers"`
	// Persist saves final actor snapshots to the database.
	Persist bool `mapstructure:"persist"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Combat     CombatConfig     `mapstructure:"combat"`
	Content    ContentConfig    `mapstructure:"content"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateLogging(c.Logging),
		validateDatabase(c.Database),
		validateCombat(c.Combat),
		validateContent(c.Content),
		validateScripting(c.Scripting),
		validateSimulation(c.Simulation),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, fmt.Sprintf("database.min_conns must be 0-%d, got %d", d.MaxConns, d.MinConns))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.BaseAPGain < 1 {
		errs = append(errs, fmt.Sprintf("combat.base_ap_gain must be >= 1, got %d", c.BaseAPGain))
	}
	if c.APCap < c.BaseAPGain {
		errs = append(errs, fmt.Sprintf("combat.ap_cap must be >= base_ap_gain, got %d", c.APCap))
	}
	if c.AttunementCap < 0 {
		errs = append(errs, "combat.attunement_cap must not be negative")
	}
	if c.AttunementStep < 0 {
		errs = append(errs, "combat.attunement_step must not be negative")
	}
	if c.BaseHitChance < 0 || c.BaseHitChance > 1 {
		errs = append(errs, fmt.Sprintf("combat.base_hit_chance must be 0-1, got %v", c.BaseHitChance))
	}
	if c.CritMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("combat.crit_multiplier must be >= 1, got %v", c.CritMultiplier))
	}
	if c.MaxActionsPerTurn < 1 {
		errs = append(errs, fmt.Sprintf("combat.max_actions_per_turn must be >= 1, got %d", c.MaxActionsPerTurn))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.ItemsDir == "" {
		errs = append(errs, "content.items_dir must not be empty")
	}
	if c.ActorsDir == "" {
		errs = append(errs, "content.actors_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.MaxRounds < 1 {
		errs = append(errs, fmt.Sprintf("simulation.max_rounds must be >= 1, got %d", s.MaxRounds))
	}
	if s.Runs < 1 {
		errs = append(errs, fmt.Sprintf("simulation.runs must be >= 1, got %d", s.Runs))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Sprintf("simulation.workers must be >= 0, got %d", s.Workers))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies GAUNTLET_
// environment variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("GAUNTLET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gauntlet")
	v.SetDefault("database.password", "gauntlet")
	v.SetDefault("database.name", "gauntlet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	def := combat.DefaultConfig()
	v.SetDefault("combat.base_ap_gain", def.Tempo.BaseAPGain)
	v.SetDefault("combat.ap_cap", def.Tempo.APCap)
	v.SetDefault("combat.passive_regen.hp", def.Resource.PassiveRegen[item.PoolHP])
	v.SetDefault("combat.passive_regen.stamina", def.Resource.PassiveRegen[item.PoolStamina])
	v.SetDefault("combat.passive_regen.mana", def.Resource.PassiveRegen[item.PoolMana])
	v.SetDefault("combat.attunement_cap", def.AttunementCap)
	v.SetDefault("combat.attunement_step", def.AttunementStep)
	v.SetDefault("combat.base_hit_chance", def.BaseHitChance)
	v.SetDefault("combat.crit_multiplier", def.CritMultiplier)
	v.SetDefault("combat.max_actions_per_turn", def.MaxActionsPerTurn)

	v.SetDefault("content.items_dir", "content/items")
	v.SetDefault("content.statuses_dir", "content/statuses")
	v.SetDefault("content.actors_dir", "content/actors")
	v.SetDefault("content.scripts_dir", "content/scripts")

	v.SetDefault("scripting.instruction_limit", 100000)

	v.SetDefault("simulation.seed", 1)
	v.SetDefault("simulation.max_rounds", 100)
	v.SetDefault("simulation.runs", 1)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.persist", false)
}
