package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Naranpurev/devcamper/auth"
	"github.com/Naranpurev/devcamper/bootcamp"
)

// Options wires the HTTP surface to the rest of the application.
type Options struct {
	Auther    *auth.Auther
	Users     auth.Users
	Bootcamps bootcamp.Bootcamps
	Geocoder  bootcamp.Geocoder
	Logger    auth.Logger

	// TokenLookup lists the token transports in precedence order, e.g.
	// "cookie:token,header:Authorization".
	TokenLookup string
	Cookie      CookieOptions

	// ResetURLBase is the absolute prefix of the password reset endpoint,
	// included verbatim in the reset email.
	ResetURLBase string
}

// New builds the fiber application with every route registered.
func New(opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = auth.DefaultLogger()
	}
	if opts.TokenLookup == "" {
		opts.TokenLookup = "cookie:token,header:Authorization"
	}

	app := fiber.New(fiber.Config{
		AppName:      "devcamper",
		ErrorHandler: ErrorHandler(opts.Logger),
	})

	protected := Protected(opts.Auther.TokenService(), opts.Users, opts.TokenLookup)
	adminOnly := RequireRoles(auth.RoleAdmin)
	publishers := RequireRoles(auth.RolePublisher, auth.RoleAdmin)

	api := app.Group("/api/v1")

	authCtrl := NewAuthController(opts.Auther, opts.Users, opts.Cookie, opts.ResetURLBase)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authCtrl.Register)
	authGroup.Post("/login", authCtrl.Login)
	authGroup.Get("/logout", authCtrl.Logout)
	authGroup.Get("/me", protected, authCtrl.Me)
	authGroup.Put("/updatedetails", protected, authCtrl.UpdateDetails)
	authGroup.Put("/updatepassword", protected, authCtrl.UpdatePassword)
	authGroup.Post("/forgotpassword", authCtrl.ForgotPassword)
	authGroup.Put("/resetpassword/:resettoken", authCtrl.ResetPassword)

	bootcampCtrl := NewBootcampController(opts.Bootcamps, opts.Geocoder, opts.Logger)
	bootcamps := api.Group("/bootcamps")
	bootcamps.Get("/", bootcampCtrl.List)
	bootcamps.Get("/radius/:zipcode/:distance", bootcampCtrl.WithinRadius)
	bootcamps.Get("/:id", bootcampCtrl.Get)
	bootcamps.Post("/", protected, publishers, bootcampCtrl.Create)
	bootcamps.Put("/:id", protected, publishers, bootcampCtrl.Update)
	bootcamps.Delete("/:id", protected, publishers, bootcampCtrl.Delete)

	usersCtrl := NewUsersController(opts.Users)
	users := api.Group("/users", protected, adminOnly)
	users.Get("/", usersCtrl.List)
	users.Post("/", usersCtrl.Create)
	users.Get("/:id", usersCtrl.Get)
	users.Put("/:id", usersCtrl.Update)
	users.Delete("/:id", usersCtrl.Delete)

	return app
}
