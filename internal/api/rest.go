package api

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hbromell/grab/internal/api/videos"
	"github.com/hbromell/grab/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router. Its sole
	// responsibility is to create the routes the service exposes and to apply
	// the process-wide middleware (logging, recovery, permissive CORS).
	RestGateway struct {
		config          *RestConfig
		ec              *echo.Echo
		videoController controller
	}
)

// NewRestGateway constructs the Echo router and populates it with the routes
// defined by the video controller.
func NewRestGateway(config *RestConfig, extractorService videos.ExtractorService) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true
	ec.HTTPErrorHandler = newHTTPErrorHandler()

	gateway := &RestGateway{
		config:          config,
		ec:              ec,
		videoController: videos.New(validator.New(), extractorService),
	}

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	// Any origin, any method, any header.
	ec.Use(middleware.CORS())
	ec.Pre(middleware.AddTrailingSlash())

	api := ec.Group("/api")
	gateway.videoController.SetRoutes(api)

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
