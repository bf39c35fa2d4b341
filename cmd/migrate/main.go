package main

import (
	"log"
	"os"

	"ai-redteam-be/pkg/database"
	"ai-redteam-be/pkg/vectorstore/pgvector"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database (the helper loads the vector extension)
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. AutoMigrate the chunk table
	if err := db.AutoMigrate(&pgvector.ChunkRow{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 4. Post-Migration: ANN index (AutoMigrate doesn't handle operator classes)
	indexSQL := `CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding
		ON document_chunks USING hnsw (embedding vector_cosine_ops)`
	if err := db.Exec(indexSQL).Error; err != nil {
		log.Printf("Warn: Failed to create ANN index: %v", err)
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
