// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import "net/http"

// NewJWKSHandler serves a pre-marshaled JWKS document at
// /.well-known/jwks.json. The document never changes during the process
// lifetime; key rotation is a deploy.
func NewJWKSHandler(document []byte) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		writer.Header().Set("Cache-Control", "public, max-age=300")
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write(document)
	}
}
