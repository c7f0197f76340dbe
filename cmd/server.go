package cmd

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// APIServer starts server
func APIServer(route *chi.Mux, port string) {
	addr := fmt.Sprintf(":%s", port)

	// Timeout ketat, endpoint webhook dipanggil gateway eksternal dan
	// body-nya kecil. Koneksi lambat jangan sampai gantung.
	srv := &http.Server{
		Addr:              addr,
		Handler:           route,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	fmt.Printf("Server running on http://localhost%s\n", addr)

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("Server error:", err)
	}
}
