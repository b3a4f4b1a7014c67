package api

import (
	"net/http"

	"github.com/seenimoa/crossasset/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config  *config.Config        `json:"config"`
	Secrets []config.SecretStatus `json:"secrets"`
}

// handleGetConfig returns the running configuration. Secrets are excluded
// from the config by json:"-" tags and reported only as masked status.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:  s.cfg,
			Secrets: config.CheckSecrets(s.cfg),
		},
	})
}
