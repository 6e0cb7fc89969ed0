package geo

// Reconciler maps country labels onto reference geometry names.
type Reconciler struct {
	ref     *ReferenceSet
	aliases map[string]string
}

// NewReconciler returns a Reconciler over the embedded reference set and the
// built-in alias table. Extra aliases, keyed by any spelling, are merged on
// top; entries whose target is not a reference name are ignored.
func NewReconciler(extra map[string]string) *Reconciler {
	r := &Reconciler{
		ref:     Reference(),
		aliases: make(map[string]string, len(aliases)+len(extra)),
	}

	for k, v := range aliases {
		r.aliases[k] = v
	}

	for k, v := range extra {
		if canon, ok := r.ref.canonical(v); ok {
			r.aliases[fold(k)] = canon
		}
	}

	return r
}

// Reconcile returns the reference spelling of label. An alias hit wins, then
// a case-insensitive match against the reference set; anything else is
// returned unchanged.
func (r *Reconciler) Reconcile(label string) string {
	if canon, ok := r.Matches(label); ok {
		return canon
	}

	return label
}

// Matches reports whether label resolves to a reference geometry name and
// returns that name.
func (r *Reconciler) Matches(label string) (string, bool) {
	key := fold(label)
	if key == "" {
		return "", false
	}

	if canon, ok := r.aliases[key]; ok {
		return canon, true
	}

	return r.ref.canonical(key)
}

// Reference returns the set the reconciler resolves against.
func (r *Reconciler) Reference() *ReferenceSet {
	return r.ref
}

var defaultReconciler = NewReconciler(nil)

// Reconcile resolves label with the built-in alias table.
func Reconcile(label string) string {
	return defaultReconciler.Reconcile(label)
}

// Matches resolves label with the built-in alias table.
func Matches(label string) (string, bool) {
	return defaultReconciler.Matches(label)
}
