package registry

// ProfileRegistry resolves named connection profiles for identity sources.
type ProfileRegistry interface {
	GetProfiles() ([]Profile, error)
	GetProfile(name string) (Profile, error)
}

// Profile is one named section of the profiles file. Platform selects the
// source provider; the remaining keys are provider specific.
type Profile struct {
	Name     string
	Platform string
	Values   map[string]string
}

// Get returns a profile key, or "" when unset.
func (p Profile) Get(key string) string {
	return p.Values[key]
}

// GetDefault returns a profile key, falling back when unset.
func (p Profile) GetDefault(key, fallback string) string {
	if v, ok := p.Values[key]; ok && v != "" {
		return v
	}
	return fallback
}
