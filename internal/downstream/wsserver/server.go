package wsserver

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"depth-feed/internal/config"
	"depth-feed/internal/depthview"
	"depth-feed/internal/logger"
	"depth-feed/internal/metrics"
	"depth-feed/internal/subscribers"
)

//go:embed templates/*.tmpl
var embeddedFS embed.FS

// Feed is the depth view host as seen by the HTTP and websocket surface.
type Feed interface {
	Greeter
	DeltaResetter
	Cells() (uint64, []depthview.CellUpdate)
	Layout() depthview.Layout
	Alive() bool
	Symbol() string
}

// abstraction of the order book for the downstream server
type OBReader interface {
	GetOrderBook(symbol string) []byte
}

type WSServer struct {
	*http.Server

	proc  *RequestProcessor
	feed  Feed
	book  OBReader
	users *subscribers.Handler
	reg   *prometheus.Registry
}

func NewWSServer(cfg config.ServerConfig, proc *RequestProcessor, feed Feed, book OBReader, users *subscribers.Handler, reg *prometheus.Registry) *WSServer {
	s := &WSServer{
		proc:  proc,
		feed:  feed,
		book:  book,
		users: users,
		reg:   reg,
	}

	s.Server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *WSServer) StartServer() error {
	logger.GetLogger().WithFields(logger.Fields{"addr": s.Addr}).Info("Depth feed server started")

	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.GetLogger().WithError(err).Error("Error on depth feed server")

		return err
	}

	return nil
}

func (s *WSServer) ShutDown(ctx context.Context) error {
	return s.Shutdown(ctx)
}

func (s *WSServer) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl := template.Must(template.New("depth").ParseFS(embeddedFS, "templates/index.tmpl"))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", func(c *gin.Context) {
		layout := s.feed.Layout()
		c.HTML(http.StatusOK, "index.tmpl", gin.H{
			"Symbol": s.feed.Symbol(),
			"Depth":  layout.Depth,
		})
	})

	router.GET("/ws", s.websocketHandler)

	router.GET("/api/depth", func(c *gin.Context) {
		seq, cells := s.feed.Cells()
		c.JSON(http.StatusOK, gin.H{
			"symbol": s.feed.Symbol(),
			"seq":    seq,
			"alive":  s.feed.Alive(),
			"layout": s.feed.Layout(),
			"cells":  cells,
		})
	})

	router.POST("/api/deltas/reset", func(c *gin.Context) {
		cells := s.feed.ResetDeltas()
		if cells == nil {
			cells = []depthview.CellUpdate{}
		}

		c.JSON(http.StatusOK, gin.H{"cells": cells})
	})

	router.GET("/api/book", func(c *gin.Context) {
		book := s.book.GetOrderBook(s.feed.Symbol())
		if book == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order book not initialised"})

			return
		}

		c.Data(http.StatusOK, "application/json", book)
	})

	router.GET("/api/clients", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"clients": s.users.ListUsers()})
	})

	router.GET("/api/clients/:id", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})

			return
		}

		user, ok := s.users.GetUser(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not connected"})

			return
		}

		c.JSON(http.StatusOK, user)
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	router.GET("/readyz", func(c *gin.Context) {
		if !s.feed.Alive() {
			c.String(http.StatusServiceUnavailable, "upstream down")

			return
		}

		c.String(http.StatusOK, "ready")
	})

	if s.reg != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(s.reg)))
	}

	return router
}

func (s *WSServer) websocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Error upgrading websocket")

		return
	}

	s.proc.handleConnection(conn, c.Request)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
