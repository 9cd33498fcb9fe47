package ipc

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/server"
	"github.com/kbukum/dspcore/server/middleware"
	"github.com/kbukum/dspcore/validation"
)

// Handler maps HTTP requests onto host commands.
type Handler struct {
	proc *Processor
}

// NewHandler creates a Handler for proc.
func NewHandler(proc *Processor) *Handler {
	return &Handler{proc: proc}
}

// RegisterRoutes mounts the command surface on r.
//
//	POST /ipc                          any Command, answered with a Reply
//	GET  /pipelines                    pipeline.list
//	GET  /pipelines/:id                stream.state
//	GET  /pipelines/:id/position       stream.position [?component=N]
//	POST /pipelines/:id/trigger        stream.trigger {"cmd": "start"}
//	POST /pipelines/:id/xrun-recover   xrun.recover
//	POST /cores/:id/enable             core.enable
//	POST /cores/:id/disable            core.disable
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/ipc", h.command)
	r.GET("/pipelines", h.listPipelines)
	r.GET("/pipelines/:id", h.pipelineState)
	r.GET("/pipelines/:id/position", h.position)
	r.POST("/pipelines/:id/trigger", h.trigger)
	r.POST("/pipelines/:id/xrun-recover", h.xrunRecover)
	r.POST("/cores/:id/enable", h.core(OpCoreEnable))
	r.POST("/cores/:id/disable", h.core(OpCoreDisable))
}

// command answers with the Reply body and the HTTP status of its error.
func (h *Handler) command(c *gin.Context) {
	var cmd Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		reply := NewReply(nil, errors.InvalidArgument("body", err.Error()).WithCause(err))
		c.JSON(http.StatusBadRequest, reply)
		return
	}
	reply := h.handle(c, cmd)
	status := http.StatusOK
	if err := reply.Err(); err != nil {
		status = errors.ToAppError(err).HTTPStatus
	}
	c.JSON(status, reply)
}

func (h *Handler) listPipelines(c *gin.Context) {
	h.respond(c, Command{Op: OpPipelineList})
}

func (h *Handler) pipelineState(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.respond(c, Command{Op: OpStreamState, PipelineID: id})
}

func (h *Handler) position(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var compID uint32
	if v := c.Query("component"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			server.RespondWithError(c, errors.InvalidArgument("component", "not a number: "+v))
			return
		}
		compID = uint32(n)
	}
	h.respond(c, Command{Op: OpStreamPosition, PipelineID: id, ComponentID: compID})
}

type triggerRequest struct {
	Cmd string `json:"cmd" validate:"required"`
}

func (h *Handler) trigger(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, errors.InvalidArgument("body", err.Error()).WithCause(err))
		return
	}
	if err := validation.Validate(req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.respond(c, Command{Op: OpStreamTrigger, PipelineID: id, Trigger: req.Cmd})
}

func (h *Handler) xrunRecover(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.respond(c, Command{Op: OpXrunRecover, PipelineID: id})
}

func (h *Handler) core(op Op) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		h.respond(c, Command{Op: op, Core: int(id)})
	}
}

// respond answers REST routes with the standard envelopes.
func (h *Handler) respond(c *gin.Context, cmd Command) {
	reply := h.handle(c, cmd)
	if err := reply.Err(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if reply.Data == nil {
		server.RespondNoContent(c)
		return
	}
	server.RespondOK(c, reply.Data)
}

func (h *Handler) handle(c *gin.Context, cmd Command) Reply {
	ctx := c.Request.Context()
	cmd.RequestID = logger.RequestIDFromContext(ctx)
	if cmd.RequestID == "" {
		cmd.RequestID = c.GetHeader(middleware.HeaderRequestID)
	}
	return h.proc.Handle(ctx, cmd)
}

func pathID(c *gin.Context) (uint32, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		server.RespondWithError(c, errors.InvalidArgument("id", "not a number: "+c.Param("id")))
		return 0, false
	}
	return uint32(n), true
}
