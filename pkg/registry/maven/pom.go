package maven

import (
	"encoding/xml"
	"strings"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/descriptor"
	"github.com/okvist/quarry/pkg/repository"
)

// pomProject is the subset of the POM format the reader consumes.
type pomProject struct {
	XMLName xml.Name `xml:"project"`

	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Packaging  string `xml:"packaging"`

	Parent struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
	} `xml:"parent"`

	Properties pomProperties `xml:"properties"`

	Dependencies        []pomDependency `xml:"dependencies>dependency"`
	ManagedDependencies []pomDependency `xml:"dependencyManagement>dependencies>dependency"`

	Repositories []pomRepository `xml:"repositories>repository"`

	DistributionManagement struct {
		Relocation *pomRelocation `xml:"relocation"`
	} `xml:"distributionManagement"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Type       string `xml:"type"`
	Classifier string `xml:"classifier"`
	Scope      string `xml:"scope"`
	Optional   string `xml:"optional"`

	Exclusions []pomExclusion `xml:"exclusions>exclusion"`
}

type pomExclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

type pomRepository struct {
	ID     string `xml:"id"`
	URL    string `xml:"url"`
	Layout string `xml:"layout"`
}

type pomRelocation struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// pomProperties decodes <properties> children into a flat map.
type pomProperties map[string]string

func (p *pomProperties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	m := make(map[string]string)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &el); err != nil {
				return err
			}
			m[el.Name.Local] = strings.TrimSpace(value)
		case xml.EndElement:
			if el.Name == start.Name {
				*p = m
				return nil
			}
		}
	}
}

// toDescriptor converts a parsed POM into the descriptor model, resolving
// ${property} references against the project's properties and built-ins.
// requested is the coordinate the descriptor was read for; it wins over
// whatever the POM's own identity fields say.
func (p *pomProject) toDescriptor(requested artifact.Coordinate) *descriptor.Descriptor {
	props := p.effectiveProperties()
	interp := func(s string) string { return interpolate(s, props) }

	desc := &descriptor.Descriptor{
		Coordinate: requested,
		Properties: props,
	}

	for _, d := range p.Dependencies {
		dep, ok := d.toDependency(interp)
		if ok {
			desc.Dependencies = append(desc.Dependencies, dep)
		}
	}
	for _, d := range p.ManagedDependencies {
		dep, ok := d.toDependency(interp)
		if ok {
			desc.ManagedDependencies = append(desc.ManagedDependencies, dep)
		}
	}

	for _, r := range p.Repositories {
		if r.ID == "" || r.URL == "" {
			continue
		}
		remote := repository.NewRemote(interp(r.ID), interp(r.URL))
		if r.Layout != "" {
			remote.Type = r.Layout
		}
		desc.Repositories = append(desc.Repositories, remote)
	}

	if rel := p.DistributionManagement.Relocation; rel != nil {
		target := artifact.Coordinate{
			GroupID:    interp(rel.GroupID),
			ArtifactID: interp(rel.ArtifactID),
			Extension:  requested.Extension,
			Classifier: requested.Classifier,
			Version:    interp(rel.Version),
		}
		if target.GroupID == "" {
			target.GroupID = requested.GroupID
		}
		if target.ArtifactID == "" {
			target.ArtifactID = requested.ArtifactID
		}
		desc.Relocation = &target
	}

	return desc
}

func (d pomDependency) toDependency(interp func(string) string) (artifact.Dependency, bool) {
	groupID := interp(d.GroupID)
	artifactID := interp(d.ArtifactID)
	// Unresolvable property references would poison cycle keys; skip them.
	if groupID == "" || artifactID == "" ||
		strings.Contains(groupID, "${") || strings.Contains(artifactID, "${") {
		return artifact.Dependency{}, false
	}

	coord := artifact.Coordinate{
		GroupID:    groupID,
		ArtifactID: artifactID,
		Extension:  interp(d.Type),
		Classifier: interp(d.Classifier),
		Version:    interp(d.Version),
	}

	dep := artifact.NewDependency(coord, interp(d.Scope))
	switch strings.TrimSpace(d.Optional) {
	case "true":
		dep = dep.WithOptional(true)
	case "false":
		dep = dep.WithOptional(false)
	}

	for _, e := range d.Exclusions {
		dep.Exclusions = append(dep.Exclusions, artifact.Exclusion{
			GroupID:    orWildcard(interp(e.GroupID)),
			ArtifactID: orWildcard(interp(e.ArtifactID)),
			Extension:  artifact.Wildcard,
			Classifier: artifact.Wildcard,
		})
	}
	return dep, true
}

func orWildcard(s string) string {
	if s == "" {
		return artifact.Wildcard
	}
	return s
}

// effectiveProperties merges the POM's property block with the built-in
// project.* properties, including parent fallbacks for groupId and version.
func (p *pomProject) effectiveProperties() map[string]string {
	props := make(map[string]string, len(p.Properties)+4)
	for k, v := range p.Properties {
		props[k] = v
	}

	groupID := p.GroupID
	if groupID == "" {
		groupID = p.Parent.GroupID
	}
	version := p.Version
	if version == "" {
		version = p.Parent.Version
	}

	props["project.groupId"] = groupID
	props["project.artifactId"] = p.ArtifactID
	props["project.version"] = version
	props["pom.groupId"] = groupID
	props["pom.version"] = version
	return props
}

// interpolate substitutes ${name} references from props. Unknown references
// are left intact so callers can detect them.
func interpolate(s string, props map[string]string) string {
	if !strings.Contains(s, "${") {
		return strings.TrimSpace(s)
	}

	var sb strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			sb.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			sb.WriteString(rest)
			break
		}
		sb.WriteString(rest[:start])
		name := rest[start+2 : start+end]
		if v, ok := props[name]; ok {
			sb.WriteString(v)
		} else {
			sb.WriteString(rest[start : start+end+1])
		}
		rest = rest[start+end+1:]
	}
	return strings.TrimSpace(sb.String())
}
