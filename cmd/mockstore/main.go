// Command mockstore serves the in-memory storefront backend for local
// development against the storesync client.
package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/itsneelabh/storesync/internal/mockstore"
)

func main() {
	var opts []mockstore.Option
	if shape := os.Getenv("MOCKSTORE_CART_SHAPE"); shape != "" {
		opts = append(opts, mockstore.WithCartShape(mockstore.CartShape(shape)))
	}
	if os.Getenv("MOCKSTORE_POPULATE") == "true" {
		opts = append(opts, mockstore.WithPopulatedProducts(true))
	}
	if os.Getenv("MOCKSTORE_NO_UPDATE") == "true" {
		opts = append(opts, mockstore.WithoutUpdateEndpoint())
	}
	if v := os.Getenv("MOCKSTORE_LATENCY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("[MOCKSTORE] Invalid MOCKSTORE_LATENCY %q: %v", v, err)
		}
		opts = append(opts, mockstore.WithLatency(d))
	}

	s := mockstore.New(opts...)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8085"
	}

	log.Printf("[MOCKSTORE] Starting server on :%s (API under %s)", port, mockstore.APIPrefix)
	log.Printf("[MOCKSTORE] Demo login: phone=%s password=%s", mockstore.DemoPhone, mockstore.DemoPassword)
	log.Println("[MOCKSTORE] Error injection endpoints available:")
	log.Println("  POST /admin/inject-error - Queue a fault")
	log.Println("  GET  /admin/status       - View queued faults")
	log.Println("  POST /admin/reset        - Drop all faults")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
