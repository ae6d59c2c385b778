package api

import (
    "encoding/json"
    "net/http"
    "os"
    "time"

    "showplan/internal/buildinfo"
)

func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, buildinfo.Info())
}

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "config": map[string]any{
            "PORT": os.Getenv("PORT"),
            "AUTH_MODE": os.Getenv("AUTH_MODE"),
            "PLAN_MAX_ATTEMPTS": os.Getenv("PLAN_MAX_ATTEMPTS"),
            "WEBHOOK_MAX_ATTEMPTS": os.Getenv("WEBHOOK_MAX_ATTEMPTS"),
            "HAS_OPENAI_API_KEY": os.Getenv("OPENAI_API_KEY") != "",
            "HAS_GOOGLE_MAPS_API_KEY": os.Getenv("GOOGLE_MAPS_API_KEY") != "",
            "HAS_DATABASE_URL": os.Getenv("DATABASE_URL") != "",
            "HAS_REDIS_URL": os.Getenv("REDIS_URL") != "",
        },
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(info)
}
