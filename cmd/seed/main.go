package main

import (
	"context"
	"log"
	"os"

	"ai-edulab-be/internal/entity"
	"ai-edulab-be/internal/repository/implementation"
	"ai-edulab-be/pkg/database"
	"ai-edulab-be/pkg/embedding"
	"ai-edulab-be/pkg/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"ai-edulab-be/internal/mapper"
	"ai-edulab-be/internal/model"
)

// Seeds a demo tenant with two study materials and their chunk
// embeddings so the RAG pipeline has something to retrieve locally.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	provider := embedding.NewOllamaProvider(
		os.Getenv("OLLAMA_BASE_URL"),
		os.Getenv("OLLAMA_EMBEDDING_MODEL"),
	)

	tenantId := mustParseEnvUUID("SEED_TENANT_ID", "00000000-0000-0000-0000-000000000001")

	materials := []struct {
		name    string
		content string
	}{
		{
			name:    "photosynthesis-basics.md",
			content: photosynthesisContent,
		},
		{
			name:    "newtonian-mechanics.md",
			content: mechanicsContent,
		},
	}

	ctx := context.Background()
	embeddingRepo := implementation.NewMaterialEmbeddingRepository(db)
	materialMapper := mapper.NewMaterialMapper()

	for _, m := range materials {
		materialId := seedMaterial(db, materialMapper, tenantId, m.name, m.content)
		if materialId == uuid.Nil {
			continue
		}

		// Reseeding replaces the chunk set
		if err := embeddingRepo.DeleteByMaterialId(ctx, materialId); err != nil {
			log.Printf("Warn: failed to clear old chunks for %s: %v", m.name, err)
		}

		chunks := utils.SplitText(m.content, 800, 100)
		entities := make([]*entity.MaterialEmbedding, 0, len(chunks))
		for i, chunk := range chunks {
			res, err := provider.Generate(ctx, chunk, "RETRIEVAL_DOCUMENT")
			if err != nil {
				log.Printf("Warn: embedding chunk %d of %s failed: %v", i, m.name, err)
				continue
			}
			entities = append(entities, &entity.MaterialEmbedding{
				Id:             uuid.New(),
				MaterialId:     materialId,
				Document:       chunk,
				ChunkIndex:     i,
				EmbeddingValue: res.Embedding.Values,
			})
		}

		if err := embeddingRepo.CreateBulk(ctx, entities); err != nil {
			log.Printf("Error: bulk insert for %s failed: %v", m.name, err)
			continue
		}
		log.Printf("Seeded %s with %d chunks", m.name, len(entities))
	}

	log.Println("✅ Seeding completed")
}

func seedMaterial(db *gorm.DB, materialMapper *mapper.MaterialMapper, tenantId uuid.UUID, name, content string) uuid.UUID {
	var existing model.Material
	if err := db.Where("tenant_id = ? AND name = ?", tenantId, name).First(&existing).Error; err == nil {
		log.Printf("Material %s already exists, reusing", name)
		return existing.Id
	}

	m := materialMapper.ToModel(&entity.Material{
		Id:       uuid.New(),
		TenantId: tenantId,
		Name:     name,
		Content:  content,
	})
	if err := db.Create(m).Error; err != nil {
		log.Printf("Error creating material %s: %v", name, err)
		return uuid.Nil
	}
	return m.Id
}

func mustParseEnvUUID(key, fallback string) uuid.UUID {
	value := os.Getenv(key)
	if value == "" {
		value = fallback
	}
	id, err := uuid.Parse(value)
	if err != nil {
		log.Fatalf("Error: %s is not a valid UUID: %v", key, err)
	}
	return id
}

const photosynthesisContent = `Photosynthesis converts light energy into chemical energy stored in glucose.
The light-dependent reactions occur in the thylakoid membranes, where chlorophyll absorbs
mostly red and blue light and splits water molecules, releasing oxygen. The Calvin cycle runs
in the stroma and fixes carbon dioxide into three-carbon sugars using ATP and NADPH produced
by the light reactions. Limiting factors include light intensity, carbon dioxide concentration,
and temperature.`

const mechanicsContent = `Newton's first law states that a body remains at rest or in uniform motion
unless acted on by a net external force. The second law relates net force, mass, and
acceleration as F = ma. The third law pairs every action force with an equal and opposite
reaction force. Friction and air resistance are common external forces that oppose relative
motion, and free-body diagrams help identify every force acting on a body.`
