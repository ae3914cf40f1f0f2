// Package manifest reads YAML deployment descriptors and evaluates the
// static decision tables they may carry.
package manifest

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// Manifest is the YAML form of a deployment request.
//
//	name: invoices
//	tenant: tenant1
//	resources:
//	  - name: invoice.bpmn
//	    kind: process
//	    key: invoice
//	    timerStart: 5m
//	    content: |
//	      ...
type Manifest struct {
	Name      string     `yaml:"name"`
	Tenant    string     `yaml:"tenant,omitempty"`
	Source    string     `yaml:"source,omitempty"`
	Resources []Resource `yaml:"resources"`
}

// Resource is one artifact listed in a manifest.
type Resource struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Key        string `yaml:"key"`
	DefName    string `yaml:"defName,omitempty"`
	VersionTag string `yaml:"versionTag,omitempty"`
	TimerStart string `yaml:"timerStart,omitempty"`
	Content    string `yaml:"content,omitempty"`
}

// ErrEmptyManifest is returned for a manifest without resources.
var ErrEmptyManifest = errors.New("manifest has no resources")

// Parse decodes a YAML manifest into a deployment request. Unknown fields
// are rejected so typos do not deploy silently.
func Parse(data []byte) (domain.DeploymentRequest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return domain.DeploymentRequest{}, fmt.Errorf("decoding manifest: %w", err)
	}
	return m.Request()
}

// Request converts m into a deployment request.
func (m Manifest) Request() (domain.DeploymentRequest, error) {
	if len(m.Resources) == 0 {
		return domain.DeploymentRequest{}, ErrEmptyManifest
	}

	req := domain.DeploymentRequest{
		Name:     m.Name,
		TenantID: domain.TenantID(m.Tenant),
		Source:   m.Source,
	}
	for i, r := range m.Resources {
		kind := domain.DefinitionKind(r.Kind)
		if !kind.Valid() {
			return domain.DeploymentRequest{}, fmt.Errorf("resource %d (%s): unknown kind %q", i, r.Name, r.Kind)
		}
		name := r.Name
		if name == "" {
			name = r.Key
		}
		req.Resources = append(req.Resources, domain.Resource{
			Name:       name,
			Kind:       kind,
			Key:        r.Key,
			DefName:    r.DefName,
			VersionTag: r.VersionTag,
			TimerStart: r.TimerStart,
			Content:    []byte(r.Content),
		})
	}
	return req, nil
}
