package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
	"backend/internal/notify"
	"backend/internal/orders"
	"backend/internal/store"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Println("⚠️ product index warning:", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Println("⚠️ user index warning:", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Println("⚠️ cart index warning:", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Println("⚠️ order index warning:", err)
	}

	engine := orders.NewEngine(
		store.NewCatalogStore(db),
		store.NewOrderStore(db),
		store.NewCartStore(db),
		store.NewUserStore(db),
		notify.NewLogNotifier(),
	)

	r := gin.Default()

	api := r.Group("/api")

	api.GET("/health", handlers.Health(db))

	api.POST("/auth/register", handlers.Register(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))
	api.POST("/auth/login", handlers.Login(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))
	api.GET("/auth/me", middleware.UserAuth(config.AppEnv.JWTSecret), handlers.GetMe(db))

	api.GET("/products", handlers.GetProducts(db))
	api.GET("/products/:id", handlers.GetProduct(db))
	api.GET("/categories", handlers.GetCategories(db))

	user := api.Group("")
	user.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		user.GET("/cart", handlers.GetCart(db))
		user.POST("/cart/add", handlers.AddToCart(db))
		user.PUT("/cart/update", handlers.UpdateCartItem(db))
		user.DELETE("/cart/remove/:productId", handlers.RemoveFromCart(db))
		user.DELETE("/cart/clear", handlers.ClearCart(db))

		user.POST("/orders", handlers.CreateOrder(engine))
		user.GET("/orders", handlers.GetMyOrders(engine))
		user.GET("/orders/:id", handlers.GetOrder(engine))
		user.PUT("/orders/:id/cancel", handlers.CancelOrder(engine))

		user.GET("/users/addresses", handlers.GetUserAddresses(db))
		user.POST("/users/addresses", handlers.CreateUserAddress(db))
		user.PUT("/users/addresses/:id", handlers.UpdateUserAddress(db))
		user.DELETE("/users/addresses/:id", handlers.DeleteUserAddress(db))
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/dashboard", handlers.GetDashboardStats(db))

		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))

		admin.POST("/categories", handlers.CreateCategory(db))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db))

		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(engine))

		admin.GET("/users", handlers.GetAllUsers(db))
		admin.PUT("/users/:id/toggle-status", handlers.ToggleUserStatus(db))
	}

	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		log.Fatal(err)
	}
}
