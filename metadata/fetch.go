package metadata

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	xrv "github.com/mattermost/xml-roundtrip-validator"

	"github.com/insaplace/samlvalidate/logger"
)

// ParseEntityMetadata parses arbitrary IdP metadata, accounting for the
// fact that it is sometimes wrapped in an <EntitiesDescriptor> and
// sometimes top-level is <EntityDescriptor> — the same problem
// insaplace-saml's samlsp.ParseMetadata solves, reproduced here verbatim in
// approach for the Entity(ies)Descriptor model above.
func ParseEntityMetadata(data []byte) (*EntityDescriptor, error) {
	entity := &EntityDescriptor{}
	if err := xrv.Validate(bytes.NewBuffer(data)); err != nil {
		return nil, err
	}
	err := xml.Unmarshal(data, entity)
	if err != nil && err.Error() == "expected element type <EntityDescriptor> but have <EntitiesDescriptor>" {
		entities := &EntitiesDescriptor{}
		if err := xml.Unmarshal(data, entities); err != nil {
			return nil, err
		}
		for i, e := range entities.EntityDescriptors {
			if len(e.IDPSSODescriptors) > 0 {
				return &entities.EntityDescriptors[i], nil
			}
		}
		return nil, errors.New("no entity found with IDPSSODescriptor")
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// ParseEntitiesMetadata parses a document that is expected to be an
// <EntitiesDescriptor>, tolerating a bare <EntityDescriptor> top level the
// same way ParseEntityMetadata tolerates the reverse.
func ParseEntitiesMetadata(data []byte) (*EntitiesDescriptor, error) {
	entities := &EntitiesDescriptor{}
	if err := xrv.Validate(bytes.NewBuffer(data)); err != nil {
		return nil, err
	}
	err := xml.Unmarshal(data, entities)
	if err != nil && err.Error() == "expected element type <EntitiesDescriptor> but have <EntityDescriptor>" {
		entity := &EntityDescriptor{}
		if err := xml.Unmarshal(data, entity); err != nil {
			return nil, err
		}
		entities.EntityDescriptors = []EntityDescriptor{*entity}
		return entities, nil
	}
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// FetchEntityMetadata retrieves and parses an IdP's metadata document from
// metadataURL.
func FetchEntityMetadata(ctx context.Context, httpClient *http.Client, metadataURL url.URL) (*EntityDescriptor, error) {
	return fetchMetadata(ctx, httpClient, metadataURL, ParseEntityMetadata)
}

// FetchEntitiesMetadata retrieves and parses a federation-style metadata
// document from metadataURL.
func FetchEntitiesMetadata(ctx context.Context, httpClient *http.Client, metadataURL url.URL) (*EntitiesDescriptor, error) {
	return fetchMetadata(ctx, httpClient, metadataURL, ParseEntitiesMetadata)
}

func fetchMetadata[R *EntityDescriptor | *EntitiesDescriptor](ctx context.Context, httpClient *http.Client, metadataURL url.URL, f func(data []byte) (R, error)) (R, error) {
	req, err := http.NewRequest(http.MethodGet, metadataURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.DefaultLogger.Printf("error closing response body while fetching metadata: %v", err)
		}
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("failed to fetch metadata: unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return f(data)
}
