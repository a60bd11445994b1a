package server

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-facerig/pkg/preview"
	"github.com/teslashibe/go-facerig/pkg/protocol"
)

// errorHandler renders every error as {"error": ...}
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// registerAPIRoutes registers the REST API
func (s *Server) registerAPIRoutes(api fiber.Router) {
	api.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.Stats())
	})

	api.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(s.Config())
	})

	sessions := api.Group("/sessions")

	sessions.Get("/", func(c *fiber.Ctx) error {
		infos := s.Sessions()
		return c.JSON(fiber.Map{
			"sessions": infos,
			"count":    len(infos),
		})
	})

	sessions.Get("/:id", func(c *fiber.Ctx) error {
		ss, err := s.lookup(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"session": ss.Info(),
			"frame":   ss.LastFrame(),
		})
	})

	sessions.Post("/:id/hide", func(c *fiber.Ctx) error {
		ss, err := s.lookup(c)
		if err != nil {
			return err
		}
		frame := ss.Hide()
		msg, err := protocol.NewRigMessage(ss.ID, frame)
		if err != nil {
			return err
		}
		s.send(ss, msg)
		s.broadcast(msg)
		return c.JSON(fiber.Map{"status": "hidden", "seq": frame.Seq})
	})

	sessions.Get("/:id/preview.png", func(c *fiber.Ctx) error {
		ss, err := s.lookup(c)
		if err != nil {
			return err
		}
		w := c.QueryInt("width", s.opts.PreviewWidth)
		h := c.QueryInt("height", s.opts.PreviewHeight)

		var buf bytes.Buffer
		if err := preview.EncodePNG(&buf, ss.LastFrame(), w, h); err != nil {
			if errors.Is(err, preview.ErrInvalidSize) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(buf.Bytes())
	})
}

func (s *Server) lookup(c *fiber.Ctx) (*Session, error) {
	ss := s.Session(c.Params("id"))
	if ss == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return ss, nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	st := s.Stats()
	return c.JSON(fiber.Map{
		"status":   "ok",
		"version":  Version,
		"sessions": st.Sessions,
		"viewers":  st.Viewers.Clients,
	})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	st := s.Stats()
	return c.SendString(fmt.Sprintf(`# HELP facerig_sessions Connected detector sessions
# TYPE facerig_sessions gauge
facerig_sessions %d

# HELP facerig_viewers Connected viewers
# TYPE facerig_viewers gauge
facerig_viewers %d

# HELP facerig_frames_received Total landmark batches received
# TYPE facerig_frames_received counter
facerig_frames_received %d

# HELP facerig_frames_rejected Landmark batches rejected as invalid
# TYPE facerig_frames_rejected counter
facerig_frames_rejected %d

# HELP facerig_messages_sent Total messages sent to detectors
# TYPE facerig_messages_sent counter
facerig_messages_sent %d

# HELP facerig_viewer_frames_dropped Frames dropped for slow viewers
# TYPE facerig_viewer_frames_dropped counter
facerig_viewer_frames_dropped %d
`, st.Sessions, st.Viewers.Clients, st.FramesReceived, st.FramesRejected, st.MessagesSent, st.Viewers.Dropped))
}
