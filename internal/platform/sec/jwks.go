// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v4"

	"github.com/taibuivan/tessera/internal/platform/constants"
)

// buildJWKSDocument marshals the public key into a single-key JWK set.
// The document is computed once per process; key rotation requires a restart
// and a new kid.
func buildJWKSDocument(publicKey *rsa.PublicKey) ([]byte, error) {
	keySet := jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       publicKey,
				KeyID:     constants.JWKSKeyID,
				Algorithm: "RS256",
				Use:       "sig",
			},
		},
	}

	document, err := json.Marshal(keySet)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to marshal jwks: %w", err)
	}
	return document, nil
}

// JWKSDocument returns the cached JWKS JSON for the signing key pair.
// Callers must not mutate the returned slice.
func (service *TokenService) JWKSDocument() []byte {
	return service.jwksDocument
}
