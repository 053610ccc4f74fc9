package endpoints

import (
	"github.com/cmformation/formation-portal/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterAuthenticateEndpoints(srv)
	RegisterWhoamiEndpoint(srv)
	RegisterProfilesEndpoints(srv)
	RegisterDocumentsEndpoints(srv)
	RegisterWorkshopsEndpoints(srv)
	RegisterFormationEndpoints(srv)
	RegisterFilesEndpoints(srv)

	// Static files
	RegisterStaticFiles(srv)
}
