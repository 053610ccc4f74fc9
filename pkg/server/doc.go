// Package server provides the HTTP server of the formation portal.
//
// The Server struct wires every component a handler needs:
//
//   - Stores: profiles, documents, workshops, the formation directory and health
//   - Object storage: the documents and workshop-files buckets plus the URL signer
//   - Tokens: access and invitation JWTs
//   - Authenticators: the registry holding the password authenticator
//   - Mailer: the transactional-email client, or a logging no-op
//   - Sync: the WordPress directory sync, when a site is configured
//
// Requests pass through combined access logging, CORS and panic recovery
// before reaching the gorilla/mux router. Routes are registered by the
// endpoints subpackage:
//
//	srv, err := server.NewServer(cfg, db, afero.NewOsFs(), logger, "0.0.0.0", "8000")
//	if err != nil {
//	    return err
//	}
//	endpoints.RegisterAll(srv)
//	return srv.Start()
package server
