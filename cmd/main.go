package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/anchorhub/ctm-chat-bridge/internal/ai"
	"github.com/anchorhub/ctm-chat-bridge/internal/chat"
	"github.com/anchorhub/ctm-chat-bridge/internal/crm"
	"github.com/anchorhub/ctm-chat-bridge/internal/docs"
	"github.com/anchorhub/ctm-chat-bridge/internal/httpx"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	forwardToken := os.Getenv("FORWARD_TOKEN")
	if forwardToken == "" {
		log.Fatal("FORWARD_TOKEN is not set")
	}
	auth := httpx.NewForwardAuth(forwardToken)

	// --- DB (optional audit trail) ---
	var db *sql.DB
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		var err error
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("db ping error: %v", err)
		}
	} else {
		log.Println("DATABASE_URL not set, audit trail disabled")
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Forward-Token"},
	}))

	// --- CRM module wiring ---
	creds, err := crm.LoadCredentials()
	if err != nil {
		log.Fatalf("crm credentials: %v", err)
	}
	log.Printf("[crm] auth mode: %s", creds.Mode())

	upstream := crm.NewHTTPUpstream(creds)
	registry := crm.NewRegistry()
	corrStore := crm.NewStore()

	warmCtx, warmCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := crm.WarmRegistry(warmCtx, registry, upstream, creds); err != nil {
		log.Printf("[crm] warm scan failed, relying on lazy provisioning: %v", err)
	}
	warmCancel()

	var crmRepo crm.Repo
	if db != nil {
		crmRepo = crm.NewRepo(db)
	}

	provisioner := crm.NewProvisioner(registry, upstream, creds)
	crmService := crm.NewService(provisioner, corrStore, upstream, crmRepo)
	crmHandler := crm.NewHandler(crmService, auth)
	crm.RegisterRoutes(r, crmHandler)

	// --- Chat module wiring ---
	profiles, err := chat.LoadProfiles()
	if err != nil {
		log.Fatalf("chat profiles: %v", err)
	}

	var chatRepo chat.Repo
	if db != nil {
		chatRepo = chat.NewRepo(db)
	}

	aiClient := ai.NewOpenAIClient()
	chatService := chat.NewService(chatRepo, aiClient, profiles)
	chatHandler := chat.NewHandler(chatService)
	chat.RegisterRoutes(r, chatHandler)

	// --- Docs module wiring (optional) ---
	ragProject := os.Getenv("RAG_PROJECT_ID")
	ragBucket := os.Getenv("RAG_GCS_BUCKET")
	if ragProject != "" && ragBucket != "" {
		ragLocation := os.Getenv("RAG_LOCATION")
		if ragLocation == "" {
			ragLocation = "us-central1"
		}

		ctx := context.Background()
		index, err := docs.NewVertexIndex(ctx, ragProject, ragLocation)
		if err != nil {
			log.Fatalf("docs index: %v", err)
		}
		uploader, err := docs.NewGCSUploader(ctx, ragBucket)
		if err != nil {
			log.Fatalf("docs uploader: %v", err)
		}

		corpusStore := docs.NewCorpusStore()
		initCtx, initCancel := context.WithTimeout(ctx, 60*time.Second)
		if err := corpusStore.Init(initCtx, index); err != nil {
			log.Printf("[docs] corpus scan failed: %v", err)
		}
		initCancel()

		docsHandler := docs.NewHandler(corpusStore, index, uploader, auth)
		docs.RegisterRoutes(r, docsHandler)
	} else {
		log.Println("[docs] RAG_PROJECT_ID/RAG_GCS_BUCKET not set, docs module disabled")
	}

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	log.Printf("listening on :%s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
