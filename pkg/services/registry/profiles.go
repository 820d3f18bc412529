package registry

import (
	"fmt"
	"os/user"

	"gopkg.in/ini.v1"
)

// DefaultPath is where the connection profiles file lives unless a caller
// says otherwise.
func DefaultPath() string {
	usr, err := user.Current()
	if err != nil {
		return "profiles.ini"
	}
	return fmt.Sprintf("%s/.access-atlas/profiles.ini", usr.HomeDir)
}

type profileRegistry struct {
	cfg *ini.File
}

func NewProfileRegistry(path string) (ProfileRegistry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &profileRegistry{cfg: cfg}, nil
}

func (pr *profileRegistry) GetProfiles() ([]Profile, error) {
	var profiles []Profile
	for _, section := range pr.cfg.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		profiles = append(profiles, sectionToProfile(section))
	}
	return profiles, nil
}

func (pr *profileRegistry) GetProfile(name string) (Profile, error) {
	section, err := pr.cfg.GetSection(name)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s not found", name)
	}
	return sectionToProfile(section), nil
}

func sectionToProfile(section *ini.Section) Profile {
	values := make(map[string]string, len(section.Keys()))
	for _, key := range section.Keys() {
		values[key.Name()] = key.String()
	}
	return Profile{
		Name:     section.Name(),
		Platform: section.Key("platform").String(),
		Values:   values,
	}
}
