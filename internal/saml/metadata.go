package saml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/crewjam/saml"
	"github.com/crewjam/saml/samlsp"
	"github.com/ghaggin/roadmap/internal/config"
	xrv "github.com/mattermost/xml-roundtrip-validator"
)

var errNoIDPDescriptor = errors.New("metadata contained no identity provider descriptor")

func loadIDPMetadata(ctx context.Context, c config.SAML, client *http.Client) (*saml.EntityDescriptor, error) {
	if c.IDPMetadataFile != "" {
		f, err := os.Open(c.IDPMetadataFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return parseIDPMetadata(f)
	}

	metadataURL, err := url.Parse(c.IDPMetadataURL)
	if err != nil {
		return nil, err
	}
	return samlsp.FetchMetadata(ctx, client, *metadataURL)
}

// parseIDPMetadata accepts a single EntityDescriptor or an
// EntitiesDescriptor holding at least one IdP.
func parseIDPMetadata(r io.Reader) (*saml.EntityDescriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if err := xrv.Validate(bytes.NewBuffer(data)); err != nil {
		return nil, fmt.Errorf("idp metadata: %w", err)
	}

	entity := &saml.EntityDescriptor{}
	err = xml.Unmarshal(data, entity)
	if err == nil {
		if len(entity.IDPSSODescriptors) == 0 {
			return nil, errNoIDPDescriptor
		}
		return entity, nil
	}

	entities := &saml.EntitiesDescriptor{}
	if err := xml.Unmarshal(data, entities); err != nil {
		return nil, fmt.Errorf("idp metadata: %w", err)
	}
	for i := range entities.EntityDescriptors {
		if len(entities.EntityDescriptors[i].IDPSSODescriptors) > 0 {
			return &entities.EntityDescriptors[i], nil
		}
	}
	return nil, errNoIDPDescriptor
}
