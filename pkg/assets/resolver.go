package assets

// Resolver maps a logical asset name to the URL the browser fetches.
type Resolver interface {
	Asset(name string) string
}

type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver combines manifest lookup with a URL prefix.
//
//	resolver := assets.NewResolver(m, "/static/")
//	resolver.Asset("islands/counter.js")
//	// "/static/islands/counter.8f1c2ab0.js"
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{manifest: m, prefix: prefix}
}

func (r *manifestResolver) Asset(name string) string {
	return r.prefix + r.manifest.Resolve(name)
}

type passthrough struct {
	prefix string
}

// NewPassthroughResolver returns names unchanged apart from the prefix.
// For development, where fingerprinting is off but URLs should match
// production shape.
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: prefix}
}

func (p *passthrough) Asset(name string) string {
	return p.prefix + name
}
