package rewrite

import (
	"errors"
	"fmt"
)

const (
	AndroidApplicationClassname = "android.app.Application"
	MockApplicationClassname    = "com.tencent.cubershi.mock_interface.MockApplication"
	AndroidActivityClassname    = "android.app.Activity"
	MockActivityClassname       = "com.tencent.cubershi.mock_interface.MockActivity"
	AndroidServiceClassname     = "android.app.Service"
	MockServiceClassname        = "com.tencent.cubershi.mock_interface.MockService"
	AndroidFragmentClassname    = "android.app.Fragment"
	ContainerFragmentClassname  = "com.tencent.cubershi.mock_interface.ContainerFragment"
	DefaultMemberSuffix         = "_"
)

// Substitution renames every reference to From into To
type Substitution struct {
	From string
	To   string
}

// Rules is the rewrite rule set of one run. It is immutable once the
// pipeline is built.
type Rules struct {
	Substitutions []Substitution // applied in order
	Marker        string         // hierarchy-membership base type
	Suffix        string         // appended to hierarchy member references
	Container     string         // superclass of fabricated stand-ins
}

func DefaultRules() Rules {
	return Rules{
		Substitutions: []Substitution{
			{From: AndroidActivityClassname, To: MockActivityClassname},
			{From: AndroidApplicationClassname, To: MockApplicationClassname},
			{From: AndroidServiceClassname, To: MockServiceClassname},
		},
		Marker:    AndroidFragmentClassname,
		Suffix:    DefaultMemberSuffix,
		Container: ContainerFragmentClassname,
	}
}

// MemberName is the alternate name references to a hierarchy member get
func (r Rules) MemberName(name string) string {
	return name + r.Suffix
}

// Validate rejects rule sets whose passes could interfere: a substitute that
// is itself a source would be re-substituted, and the marker must stay
// untouched by substitution.
func (r Rules) Validate() error {
	var errs []error
	if r.Marker == "" {
		errs = append(errs, errors.New("marker type is required"))
	}
	if r.Suffix == "" {
		errs = append(errs, errors.New("member suffix is required"))
	}
	if r.Container == "" {
		errs = append(errs, errors.New("container type is required"))
	}

	sources := make(map[string]bool, len(r.Substitutions))
	for _, s := range r.Substitutions {
		if s.From == "" || s.To == "" {
			errs = append(errs, fmt.Errorf("substitution %q -> %q has an empty side", s.From, s.To))
			continue
		}
		if sources[s.From] {
			errs = append(errs, fmt.Errorf("duplicate substitution for %s", s.From))
		}
		sources[s.From] = true
	}

	for _, s := range r.Substitutions {
		if sources[s.To] {
			errs = append(errs, fmt.Errorf("substitute %s is also substituted", s.To))
		}
		if s.From == r.Marker || s.To == r.Marker {
			errs = append(errs, fmt.Errorf("marker %s cannot take part in a substitution", r.Marker))
		}
	}

	return errors.Join(errs...)
}
