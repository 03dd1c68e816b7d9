// Package server wires the HTTP surface of the gallery engine: route
// registration, identity middleware, and the translation between gin
// requests and the command layer.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	"github.com/galleria-app/galleria/pkg/server/auth"
	"github.com/galleria-app/galleria/pkg/server/commands"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/server/middleware"
	"github.com/galleria-app/galleria/pkg/storage"
)

// Config carries the transport-level settings of the server.
type Config struct {
	JWTSecret          string
	CORSAllowedOrigins []string
}

// Server exposes the gallery engine over HTTP.
type Server struct {
	datastore storage.GalleryDatastore
	logger    logger.Logger
	config    Config
}

func New(datastore storage.GalleryDatastore, logger logger.Logger, config Config) *Server {
	return &Server{
		datastore: datastore,
		logger:    logger,
		config:    config,
	}
}

// Router builds the gin engine with all routes registered. Everything
// under /api requires a valid bearer token.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(s.logger))

	corsConfig := cors.DefaultConfig()
	if len(s.config.CORSAllowedOrigins) > 0 {
		corsConfig.AllowOrigins = s.config.CORSAllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Request-Id"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", s.health)

	api := router.Group("/api")
	api.Use(auth.Middleware([]byte(s.config.JWTSecret)))

	api.GET("/items", s.listItems)
	api.POST("/items", s.createItem)
	api.GET("/items/:id", s.getItem)
	api.PUT("/items/:id", s.updateItem)
	api.DELETE("/items/:id", s.deleteItem)
	api.POST("/items/:id/favorite", s.toggleFavorite)
	api.PUT("/items/:id/rating", s.rateItem)
	api.POST("/items/:id/use", s.recordItemUsage)

	api.GET("/collections", s.listCollections)
	api.POST("/collections", s.createCollection)
	api.GET("/collections/:id", s.getCollection)
	api.PUT("/collections/:id", s.updateCollection)
	api.DELETE("/collections/:id", s.deleteCollection)
	api.GET("/collections/:id/items", s.listCollectionItems)
	api.POST("/collections/:id/items/:itemID", s.addCollectionItem)
	api.DELETE("/collections/:id/items/:itemID", s.removeCollectionItem)

	api.GET("/tournaments", s.listTournaments)
	api.GET("/tournaments/:id", s.getTournament)
	api.POST("/tournaments/:id/register", s.registerParticipant)
	api.GET("/tournaments/:id/participation", s.getParticipation)
	api.POST("/tournaments/:id/submit", s.submitEntry)

	return router
}

func (s *Server) health(c *gin.Context) {
	status, err := s.datastore.IsReady(c.Request.Context())
	if err != nil || !status.IsReady {
		message := status.Message
		if err != nil {
			message = err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listParams flattens the query string into the map the spec builder
// consumes. Repeated parameters keep their first value.
func listParams(c *gin.Context) map[string]string {
	params := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// sendError converts a command error into the uniform error body.
// Conflict responses additionally carry the sub-kind in "code".
func (s *Server) sendError(c *gin.Context, err error) {
	serverErr := serverErrors.HandleError(err)
	if serverErr.HTTPStatus >= http.StatusInternalServerError {
		s.logger.ErrorWithContext(c.Request.Context(), "request failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(serverErr.Internal()),
		)
	}

	body := gin.H{
		"error":   serverErr.ErrorCode,
		"message": serverErr.Message,
	}
	if serverErr.HTTPStatus == http.StatusConflict {
		body["code"] = serverErr.ErrorCode
	}
	c.JSON(serverErr.HTTPStatus, body)
}

func (s *Server) listItems(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	query := commands.NewListItemsQuery(s.datastore, s.logger)
	resp, err := query.Execute(c.Request.Context(), &commands.ListItemsRequest{
		Principal: principal.ID,
		Params:    listParams(c),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getItem(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	query := commands.NewGetItemQuery(s.datastore, s.logger)
	resp, err := query.Execute(c.Request.Context(), &commands.GetItemRequest{
		Principal: principal.ID,
		ItemID:    c.Param("id"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) createItem(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	var req commands.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, serverErrors.NewValidationError("body", "must be valid JSON"))
		return
	}
	req.Principal = principal.ID

	command := commands.NewCreateItemCommand(s.datastore, s.logger)
	resp, err := command.Execute(c.Request.Context(), &req)
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) updateItem(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	var req commands.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, serverErrors.NewValidationError("body", "must be valid JSON"))
		return
	}
	req.Principal = principal.ID
	req.ItemID = c.Param("id")

	command := commands.NewUpdateItemCommand(s.datastore, s.logger)
	resp, err := command.Execute(c.Request.Context(), &req)
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteItem(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	command := commands.NewDeleteItemCommand(s.datastore, s.logger)
	err := command.Execute(c.Request.Context(), &commands.DeleteItemRequest{
		Principal: principal.ID,
		ItemID:    c.Param("id"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) toggleFavorite(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	command := commands.NewToggleFavoriteCommand(s.datastore, s.logger)
	resp, err := command.Execute(c.Request.Context(), &commands.ToggleFavoriteRequest{
		Principal: principal.ID,
		ItemID:    c.Param("id"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) rateItem(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	var req commands.RateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, serverErrors.NewValidationError("body", "must be valid JSON"))
		return
	}
	req.Principal = principal.ID
	req.ItemID = c.Param("id")

	command := commands.NewRateItemCommand(s.datastore, s.logger)
	resp, err := command.Execute(c.Request.Context(), &req)
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) recordItemUsage(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	command := commands.NewRecordItemUsageCommand(s.datastore, s.logger)
	resp, err := command.Execute(c.Request.Context(), &commands.RecordItemUsageRequest{
		Principal: principal.ID,
		ItemID:    c.Param("id"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listCollections(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	query := commands.NewListCollectionsQuery(s.datastore, s.logger)
	resp, err := query.Execute(c.Request.Context(), &commands.ListCollectionsRequest{
		Principal: principal.ID,
		Params:    listParams(c),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getCollection(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	query := commands.NewGetCollectionQuery(s.datastore, s.logger)
	resp, err := query.Execute(c.Request.Context(), &commands.GetCollectionRequest{
		Principal:    principal.ID,
		CollectionID: c.Param("id"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) createCollection(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	var req commands.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, serverErrors.NewValidationError("body", "must be valid JSON"))
		return
	}
	req.Principal = principal.ID

	command := commands.NewCreateCollectionCommand(s.datastore, s.logger)
	resp, err := command.Execute(c.Request.Context(), &req)
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) updateCollection(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	var req commands.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, serverErrors.NewValidationError("body", "must be valid JSON"))
		return
	}
	req.Principal = principal.ID
	req.CollectionID = c.Param("id")

	command := commands.NewUpdateCollectionCommand(s.datastore, s.logger)
	resp, err := command.Execute(c.Request.Context(), &req)
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteCollection(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	command := commands.NewDeleteCollectionCommand(s.datastore, s.logger)
	err := command.Execute(c.Request.Context(), &commands.DeleteCollectionRequest{
		Principal:    principal.ID,
		CollectionID: c.Param("id"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listCollectionItems(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	query := commands.NewListCollectionItemsQuery(s.datastore, s.logger)
	resp, err := query.Execute(c.Request.Context(), &commands.ListCollectionItemsRequest{
		Principal:    principal.ID,
		CollectionID: c.Param("id"),
		Params:       listParams(c),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) addCollectionItem(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	command := commands.NewAddCollectionItemCommand(s.datastore, s.logger)
	err := command.Execute(c.Request.Context(), &commands.CollectionItemRequest{
		Principal:    principal.ID,
		CollectionID: c.Param("id"),
		ItemID:       c.Param("itemID"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (s *Server) removeCollectionItem(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	command := commands.NewRemoveCollectionItemCommand(s.datastore, s.logger)
	err := command.Execute(c.Request.Context(), &commands.CollectionItemRequest{
		Principal:    principal.ID,
		CollectionID: c.Param("id"),
		ItemID:       c.Param("itemID"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listTournaments(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	query := commands.NewListTournamentsQuery(s.datastore, s.logger)
	resp, err := query.Execute(c.Request.Context(), &commands.ListTournamentsRequest{
		Principal: principal.ID,
		Params:    listParams(c),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getTournament(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	query := commands.NewGetTournamentQuery(s.datastore, s.logger)
	resp, err := query.Execute(c.Request.Context(), &commands.GetTournamentRequest{
		Principal:    principal.ID,
		TournamentID: c.Param("id"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) registerParticipant(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	command := commands.NewRegisterParticipantCommand(s.datastore, s.logger)
	resp, err := command.Execute(c.Request.Context(), &commands.RegisterParticipantRequest{
		Principal:    principal.ID,
		TournamentID: c.Param("id"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) getParticipation(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	query := commands.NewGetParticipationQuery(s.datastore, s.logger)
	resp, err := query.Execute(c.Request.Context(), &commands.GetParticipationRequest{
		Principal:    principal.ID,
		TournamentID: c.Param("id"),
	})
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) submitEntry(c *gin.Context) {
	principal := auth.PrincipalFromContext(c)
	var req commands.SubmitEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, serverErrors.NewValidationError("body", "must be valid JSON"))
		return
	}
	req.Principal = principal.ID
	req.TournamentID = c.Param("id")

	command := commands.NewSubmitEntryCommand(s.datastore, s.logger)
	resp, err := command.Execute(c.Request.Context(), &req)
	if err != nil {
		s.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
