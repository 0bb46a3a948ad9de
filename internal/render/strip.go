package render

// StripCustom implements §4.11: removes x-sb* extension data (root and
// per-service "x-sb" custom entries, and the typed XSbGroups/XSbSecrets
// fields) before serialization. Third-party "x-*" Custom keys are left
// untouched.
func StripCustom(ctx *Context) error {
	delete(ctx.Working.Custom, "x-sb")

	for _, svc := range ctx.Working.Services {
		delete(svc.Custom, "x-sb")
		svc.XSbGroups = nil
		svc.XSbSecrets = nil
	}
	return nil
}
