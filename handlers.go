package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"pricescan/pkg/store"
	"pricescan/process/batch"
	"pricescan/process/history"
)

const maxPriceLen = 64

func setupRoutes(r *gin.Engine) {
	r.GET("/health", healthHandler)
	r.POST("/login", loginHandler)
	r.GET("/prices", listPricesHandler)
	r.GET("/prices/:name", getPriceHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.PUT("/prices/:name", updatePriceHandler)
	authGroup.POST("/scan", scanHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		c.Set("username", username)
		c.Next()
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := Authenticate(req.Username, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := issueToken(strings.TrimSpace(req.Username))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

// loadSaved reads the current saved_prices.json, answering the request itself
// when that fails.
func loadSaved(c *gin.Context) (map[string]string, bool) {
	prices, err := batch.LoadPrices(cfg.JSONPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no saved prices yet, run a scan first"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return prices, true
}

func listPricesHandler(c *gin.Context) {
	prices, ok := loadSaved(c)
	if !ok {
		return
	}
	detected := 0
	for _, p := range prices {
		if p != "" {
			detected++
		}
	}
	c.JSON(http.StatusOK, gin.H{"prices": prices, "files": len(prices), "detected": detected})
}

// getPriceHandler returns one saved price plus the cached OCR detail, if any.
func getPriceHandler(c *gin.Context) {
	prices, ok := loadSaved(c)
	if !ok {
		return
	}
	name := c.Param("name")
	price, found := prices[name]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown file"})
		return
	}
	resp := gin.H{"file": name, "price": price, "detected": price != ""}
	if cache != nil {
		if d, err := cache.Get(name); err == nil && d != nil {
			resp["text"] = d.Text
			resp["strategy"] = d.Strategy
		}
	}
	c.JSON(http.StatusOK, resp)
}

// updatePriceHandler corrects one price and regenerates both artifacts. An
// empty price marks the file as not detected.
func updatePriceHandler(c *gin.Context) {
	var req struct {
		Price *string `json:"price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	newPrice := strings.TrimSpace(*req.Price)
	if len(newPrice) > maxPriceLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price too long"})
		return
	}

	scanMu.Lock()
	defer scanMu.Unlock()
	prices, ok := loadSaved(c)
	if !ok {
		return
	}
	name := c.Param("name")
	old, found := prices[name]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown file"})
		return
	}
	prices[name] = newPrice
	if err := batch.WriteArtifacts(prices, cfg.JSONPath(), cfg.JSPath()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write prices"})
		return
	}
	if cache != nil {
		d, err := cache.Get(name)
		switch {
		case err != nil:
			log.Printf("cache read %s: %v", name, err)
		case d == nil:
			d = &store.Detail{}
			fallthrough
		default:
			d.Price = newPrice
			d.Strategy = store.StrategyManual
			d.UpdatedAt = time.Time{}
			if err := cache.Put(name, *d); err != nil {
				log.Printf("cache write %s: %v", name, err)
			}
		}
	}
	if db != nil {
		reviewer, _ := c.Get("username")
		rv, _ := reviewer.(string)
		if err := history.RecordEdit(db, name, old, newPrice, rv); err != nil {
			log.Printf("history edit %s: %v", name, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"file": name, "price": newPrice, "previous": old})
}

// scanHandler re-runs the batch over the image folder.
func scanHandler(c *gin.Context) {
	scanMu.Lock()
	defer scanMu.Unlock()
	started := time.Now()
	rep, err := batch.Run(batchOptions(io.Discard))
	if err != nil {
		if errors.Is(err, batch.ErrMissingInputDir) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	recordRun(rep, started)
	c.JSON(http.StatusOK, gin.H{"prices": rep.Prices, "files": len(rep.Results), "detected": rep.DetectedCount()})
}
