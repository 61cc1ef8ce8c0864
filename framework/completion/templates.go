package completion

// DefaultTemplates are the skeletons every provider starts with unless
// Config.DisableDefaultTemplates is set.
func DefaultTemplates() map[string]string {
	return map[string]string{
		"main":   "if __name__ == \"__main__\":\n    ",
		"try":    "try:\n    \nexcept Exception as e:\n    ",
		"for":    "for i in range(10):\n    ",
		"while":  "while True:\n    ",
		"if":     "if condition:\n    ",
		"elif":   "elif condition:\n    ",
		"else":   "else:\n    ",
		"class":  "class ClassName:\n    def __init__(self):\n        ",
		"def":    "def function_name(parameters):\n    ",
		"return": "return ",
		"import": "import ",
		"from":   "from module import ",
	}
}

// AddTemplate registers or replaces the expansion for keyword and rebuilds
// the candidate model so keyword is offered immediately.
func (p *Provider) AddTemplate(keyword, expansion string) {
	if keyword == "" {
		return
	}
	p.mu.Lock()
	p.templates[keyword] = expansion
	p.rebuildLocked()
	p.mu.Unlock()
}

// Template returns the expansion registered for keyword.
func (p *Provider) Template(keyword string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	expansion, ok := p.templates[keyword]
	return expansion, ok
}

// IsTemplate reports whether keyword expands to a skeleton.
func (p *Provider) IsTemplate(keyword string) bool {
	_, ok := p.Template(keyword)
	return ok
}

// Templates returns a copy of every registered template.
func (p *Provider) Templates() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, len(p.templates))
	for k, v := range p.templates {
		out[k] = v
	}
	return out
}
