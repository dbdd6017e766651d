package session

// DefaultContextName is the name logins are stored under.
const DefaultContextName = "default"

// Context is a persisted login against one yatai endpoint.
type Context struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	APIToken string `yaml:"api_token"`
	Email    string `yaml:"email"`
}

// config is the document stored in the yatai context file. Keys written by
// other tools are kept in Extra so a rewrite does not drop them.
type config struct {
	Contexts           []Context      `yaml:"contexts"`
	CurrentContextName string         `yaml:"current_context_name"`
	Extra              map[string]any `yaml:",inline"`
}

// put replaces the context with the same name or appends it. It reports
// whether an existing entry was replaced.
func (c *config) put(ctx Context) bool {
	for i := range c.Contexts {
		if c.Contexts[i].Name == ctx.Name {
			c.Contexts[i] = ctx
			return true
		}
	}
	c.Contexts = append(c.Contexts, ctx)
	return false
}

func (c *config) get(name string) (Context, bool) {
	for _, ctx := range c.Contexts {
		if ctx.Name == name {
			return ctx, true
		}
	}
	return Context{}, false
}
