package main

import (
	"strings"
	"sync"

	"playtime/internal/config"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	engineOnce sync.Once
	engine     *engine
	engineErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureEngine builds the resolution engine on first use. The engine is
// shared by every subcommand in the process; Close it via withEngine.
func (c *commandContext) ensureEngine() (*engine, error) {
	c.engineOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.engineErr = err
			return
		}
		c.engine, c.engineErr = newEngine(cfg)
	})
	return c.engine, c.engineErr
}

func (c *commandContext) withEngine(fn func(*engine) error) error {
	eng, err := c.ensureEngine()
	if err != nil {
		return err
	}
	defer eng.Close()
	return fn(eng)
}
