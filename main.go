package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"vocalia_back/authorization"
	"vocalia_back/llm"
	"vocalia_back/personas"
	"vocalia_back/speak"
	"vocalia_back/tts"
)

func mustLoadEnv() {
	_ = godotenv.Load()
}

func main() {
	mustLoadEnv()

	r := gin.Default()
	r.Use(cors.Default())

	authModule, err := authorization.RegisterRoutes(r)
	if err != nil {
		log.Fatalf("register auth routes: %v", err)
	}

	personaModule, err := personas.RegisterRoutes(r)
	if err != nil {
		log.Fatalf("register persona routes: %v", err)
	}

	chatClient, err := llm.NewChatClientFromEnv()
	if err != nil {
		log.Fatalf("init llm client: %v", err)
	}

	ttsModule, err := tts.RegisterRoutes(r)
	if err != nil {
		log.Fatalf("register tts routes: %v", err)
	}

	if _, err := speak.RegisterRoutes(r, personaModule.Registry(), llm.NewResponder(chatClient), ttsModule, authModule.Guard()); err != nil {
		log.Fatalf("register speak routes: %v", err)
	}

	r.Static("/audio", ttsModule.AudioDir())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("start server: %v", err)
	}
}
