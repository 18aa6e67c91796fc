package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/events"
	"github.com/safar/go-storefront/internal/identity"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/tags"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	bus := events.NewBus()
	bus.SubscribeOrderCreated(func(ctx context.Context, event events.OrderCreated) error {
		log.Printf("order %d placed for customer %d with %d item(s)",
			event.Order.ID, event.Order.CustomerID, len(event.Order.Items))
		return nil
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      newMux(db, bus, cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func newMux(db *sql.DB, bus *events.Bus, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", handleCreateUser(db))
	mux.HandleFunc("GET /users/{id}", handleGetUser(db))

	mux.HandleFunc("GET /products", handleListProducts(db))
	mux.HandleFunc("POST /products", staffOnly(cfg, handleCreateProduct(db)))
	mux.HandleFunc("GET /products/{id}", handleGetProduct(db))
	mux.HandleFunc("PUT /products/{id}", staffOnly(cfg, handleUpdateProduct(db)))
	mux.HandleFunc("DELETE /products/{id}", staffOnly(cfg, handleDeleteProduct(db)))

	mux.HandleFunc("GET /products/{id}/reviews", handleListReviews(db))
	mux.HandleFunc("POST /products/{id}/reviews", authenticated(cfg, handleCreateReview(db)))
	mux.HandleFunc("DELETE /reviews/{id}", staffOnly(cfg, handleDeleteReview(db)))

	mux.HandleFunc("GET /products/{id}/promotions", handleListProductPromotions(db))
	mux.HandleFunc("POST /products/{id}/promotions", staffOnly(cfg, handleAttachPromotion(db)))
	mux.HandleFunc("DELETE /products/{id}/promotions/{promotion_id}", staffOnly(cfg, handleDetachPromotion(db)))

	mux.HandleFunc("GET /collections", handleListCollections(db))
	mux.HandleFunc("POST /collections", staffOnly(cfg, handleCreateCollection(db)))
	mux.HandleFunc("GET /collections/{id}", handleGetCollection(db))
	mux.HandleFunc("PUT /collections/{id}", staffOnly(cfg, handleUpdateCollection(db)))
	mux.HandleFunc("DELETE /collections/{id}", staffOnly(cfg, handleDeleteCollection(db)))

	mux.HandleFunc("POST /promotions", staffOnly(cfg, handleCreatePromotion(db)))
	mux.HandleFunc("GET /promotions/{id}", handleGetPromotion(db))
	mux.HandleFunc("DELETE /promotions/{id}", staffOnly(cfg, handleDeletePromotion(db)))

	mux.HandleFunc("POST /carts", handleCreateCart(db))
	mux.HandleFunc("GET /carts/{cart_id}", handleGetCart(db))
	mux.HandleFunc("DELETE /carts/{cart_id}", handleDeleteCart(db))
	mux.HandleFunc("POST /carts/{cart_id}/items", handleAddCartItem(db))
	mux.HandleFunc("PATCH /carts/{cart_id}/items/{item_id}", handleUpdateCartItem(db))
	mux.HandleFunc("DELETE /carts/{cart_id}/items/{item_id}", handleRemoveCartItem(db))

	mux.HandleFunc("POST /orders", authenticated(cfg, handlePlaceOrder(db, bus)))
	mux.HandleFunc("GET /orders", authenticated(cfg, handleListOrders(db)))
	mux.HandleFunc("GET /orders/{id}", authenticated(cfg, handleGetOrder(db)))
	mux.HandleFunc("PATCH /orders/{id}", staffOnly(cfg, handleUpdateOrderPayment(db)))
	mux.HandleFunc("DELETE /orders/{id}", staffOnly(cfg, handleDeleteOrder(db)))

	mux.HandleFunc("GET /customers", staffOnly(cfg, handleListCustomers(db)))
	mux.HandleFunc("GET /customers/me", authenticated(cfg, handleGetMe(db)))
	mux.HandleFunc("PUT /customers/me", authenticated(cfg, handleUpdateMe(db)))
	mux.HandleFunc("PUT /customers/me/address", authenticated(cfg, handleSetMyAddress(db)))
	mux.HandleFunc("PUT /customers/{id}", staffOnly(cfg, handleUpdateCustomer(db)))

	mux.HandleFunc("GET /tags", handleListTags(db))
	mux.HandleFunc("POST /tags", staffOnly(cfg, handleCreateTag(db)))
	mux.HandleFunc("DELETE /tags/{id}", staffOnly(cfg, handleDeleteTag(db)))
	mux.HandleFunc("GET /tagged-items", handleListTaggedItems(db))
	mux.HandleFunc("POST /tagged-items", staffOnly(cfg, handleAttachTag(db)))
	mux.HandleFunc("DELETE /tagged-items/{id}", staffOnly(cfg, handleDetachTag(db)))
	mux.HandleFunc("GET /liked-items", handleListLikedItems(db))
	mux.HandleFunc("POST /liked-items", authenticated(cfg, handleLikeItem(db)))
	mux.HandleFunc("DELETE /liked-items/{id}", authenticated(cfg, handleUnlikeItem(db)))

	return mux
}

type principalHandler func(w http.ResponseWriter, r *http.Request, p *identity.Principal)

func authenticated(cfg *config.Config, next principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := identity.FromRequest(r, cfg.Auth.TokenSecret)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Missing or invalid credentials")
			return
		}
		next(w, r, principal)
	}
}

func staffOnly(cfg *config.Config, next principalHandler) http.HandlerFunc {
	return authenticated(cfg, func(w http.ResponseWriter, r *http.Request, p *identity.Principal) {
		if !p.Staff {
			respondError(w, http.StatusForbidden, "Staff access required")
			return
		}
		next(w, r, p)
	})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func handleCreateUser(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			Name  string `json:"name"`
			Staff bool   `json:"staff"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := store.CreateUser(r.Context(), db, req.Email, req.Name, req.Staff)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, user)
	}
}

func handleGetUser(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		user, err := store.GetUser(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, user)
	}
}

type productPayload struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	Inventory    *int     `json:"inventory"`
	CollectionID *int64   `json:"collection_id"`
}

func handleCreateProduct(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		var req productPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Title == nil || req.Price == nil || req.CollectionID == nil {
			respondError(w, http.StatusBadRequest, "title, price and collection_id are required")
			return
		}

		create := store.CreateProductRequest{
			Title:        *req.Title,
			Price:        decimal.NewFromFloat(*req.Price),
			CollectionID: *req.CollectionID,
		}
		if req.Description != nil {
			create.Description = *req.Description
		}
		if req.Inventory != nil {
			create.Inventory = *req.Inventory
		}

		product, err := store.CreateProduct(r.Context(), db, create)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, product)
	}
}

func handleGetProduct(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		product, err := store.GetProduct(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleUpdateProduct(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		var req productPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		update := store.UpdateProductRequest{
			Title:        req.Title,
			Description:  req.Description,
			Inventory:    req.Inventory,
			CollectionID: req.CollectionID,
		}
		if req.Price != nil {
			price := decimal.NewFromFloat(*req.Price)
			update.Price = &price
		}

		product, err := store.UpdateProduct(r.Context(), db, id, update)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, product)
	}
}

func handleDeleteProduct(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		if err := store.DeleteProduct(r.Context(), db, id); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListProducts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize := pageParams(r)

		var filter store.ProductFilter
		q := r.URL.Query()
		if v := q.Get("collection_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid collection_id")
				return
			}
			filter.CollectionID = &id
		}
		if v := q.Get("price_gt"); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid price_gt")
				return
			}
			filter.PriceGT = &d
		}
		if v := q.Get("price_lt"); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid price_lt")
				return
			}
			filter.PriceLT = &d
		}
		if v := q.Get("inventory_gt"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid inventory_gt")
				return
			}
			filter.InventoryGT = &n
		}
		if v := q.Get("inventory_lt"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid inventory_lt")
				return
			}
			filter.InventoryLT = &n
		}

		result, err := store.ListProducts(r.Context(), db, filter, page, pageSize)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleListReviews(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		reviews, err := store.ListProductReviews(r.Context(), db, productID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, reviews)
	}
}

func handleCreateReview(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, p *identity.Principal) {
		productID, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		var req struct {
			Description string `json:"description"`
			ParentID    *int64 `json:"parent_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		customer, err := store.GetCustomerByUserID(r.Context(), db, p.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		review, err := store.CreateReview(r.Context(), db, productID, customer.ID, req.Description, req.ParentID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, review)
	}
}

func handleDeleteReview(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid review ID")
			return
		}

		if err := store.DeleteReview(r.Context(), db, id); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListProductPromotions(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		promotions, err := store.ListProductPromotions(r.Context(), db, productID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, promotions)
	}
}

func handleAttachPromotion(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		productID, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		var req struct {
			PromotionID int64 `json:"promotion_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := store.AttachPromotion(r.Context(), db, productID, req.PromotionID); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDetachPromotion(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		productID, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}
		promotionID, ok := pathID(r, "promotion_id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid promotion ID")
			return
		}

		if err := store.DetachPromotion(r.Context(), db, productID, promotionID); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListCollections(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collections, err := store.ListCollections(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, collections)
	}
}

type collectionPayload struct {
	Title             string `json:"title"`
	FeaturedProductID *int64 `json:"featured_product_id"`
}

func handleCreateCollection(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		var req collectionPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		collection, err := store.CreateCollection(r.Context(), db, req.Title, req.FeaturedProductID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, collection)
	}
}

func handleGetCollection(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid collection ID")
			return
		}

		collection, err := store.GetCollection(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, collection)
	}
}

func handleUpdateCollection(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid collection ID")
			return
		}

		var req collectionPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		collection, err := store.UpdateCollection(r.Context(), db, id, req.Title, req.FeaturedProductID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, collection)
	}
}

func handleDeleteCollection(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid collection ID")
			return
		}

		if err := store.DeleteCollection(r.Context(), db, id); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCreatePromotion(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		var req struct {
			Description string  `json:"description"`
			Discount    float64 `json:"discount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		promotion, err := store.CreatePromotion(r.Context(), db, req.Description, decimal.NewFromFloat(req.Discount))
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, promotion)
	}
}

func handleGetPromotion(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid promotion ID")
			return
		}

		promotion, err := store.GetPromotion(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, promotion)
	}
}

func handleDeletePromotion(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid promotion ID")
			return
		}

		if err := store.DeletePromotion(r.Context(), db, id); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCreateCart(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := store.CreateCart(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, cart)
	}
}

func handleGetCart(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := store.GetCart(r.Context(), db, r.PathValue("cart_id"))
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, cart)
	}
}

func handleDeleteCart(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteCart(r.Context(), db, r.PathValue("cart_id")); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAddCartItem(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID int64 `json:"product_id"`
			Quantity  int   `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		item, err := store.AddCartItem(r.Context(), db, r.PathValue("cart_id"), req.ProductID, req.Quantity)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, item)
	}
}

func handleUpdateCartItem(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, ok := pathID(r, "item_id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid cart item ID")
			return
		}

		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		item, err := store.UpdateCartItem(r.Context(), db, r.PathValue("cart_id"), itemID, req.Quantity)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, item)
	}
}

func handleRemoveCartItem(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, ok := pathID(r, "item_id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid cart item ID")
			return
		}

		if err := store.RemoveCartItem(r.Context(), db, r.PathValue("cart_id"), itemID); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handlePlaceOrder(db *sql.DB, bus *events.Bus) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, p *identity.Principal) {
		var req struct {
			CartID string `json:"cart_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		order, err := store.PlaceOrder(r.Context(), db, bus, req.CartID, p.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, order)
	}
}

func handleListOrders(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, p *identity.Principal) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		var customerID *int64
		if !p.Staff {
			customer, err := store.GetCustomerByUserID(r.Context(), db, p.UserID)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			customerID = &customer.ID
		}

		result, err := store.ListOrdersCursor(r.Context(), db, customerID, r.URL.Query().Get("cursor"), limit)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleGetOrder(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, p *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		order, err := store.GetOrder(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		if !p.Staff {
			customer, err := store.GetCustomerByUserID(r.Context(), db, p.UserID)
			if err != nil || customer.ID != order.CustomerID {
				respondError(w, http.StatusNotFound, "order not found")
				return
			}
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func handleUpdateOrderPayment(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		var req struct {
			PaymentStatus string `json:"payment_status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		order, err := store.UpdatePaymentStatus(r.Context(), db, id, req.PaymentStatus)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func handleDeleteOrder(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		if err := store.DeleteOrder(r.Context(), db, id); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListCustomers(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		page, pageSize := pageParams(r)

		result, err := store.ListCustomers(r.Context(), db, page, pageSize)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleGetMe(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, p *identity.Principal) {
		customer, err := store.GetCustomerByUserID(r.Context(), db, p.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, customer)
	}
}

type customerPayload struct {
	Phone      *string `json:"phone"`
	BirthDate  *string `json:"birth_date"`
	Membership *string `json:"membership"`
}

func (p customerPayload) toRequest() (store.UpdateCustomerRequest, error) {
	req := store.UpdateCustomerRequest{
		Phone:      p.Phone,
		Membership: p.Membership,
	}
	if p.BirthDate != nil {
		birthDate, err := time.Parse("2006-01-02", *p.BirthDate)
		if err != nil {
			return req, err
		}
		req.BirthDate = &birthDate
	}
	return req, nil
}

func handleUpdateMe(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, p *identity.Principal) {
		var payload customerPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req, err := payload.toRequest()
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid birth_date, expected YYYY-MM-DD")
			return
		}

		customer, err := store.GetCustomerByUserID(r.Context(), db, p.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		updated, err := store.UpdateCustomer(r.Context(), db, customer.ID, req, p.Staff)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, updated)
	}
}

func handleSetMyAddress(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, p *identity.Principal) {
		var req struct {
			Street string `json:"street"`
			City   string `json:"city"`
			Zip    string `json:"zip"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		customer, err := store.GetCustomerByUserID(r.Context(), db, p.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		address, err := store.SetAddress(r.Context(), db, customer.ID, req.Street, req.City, req.Zip)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, address)
	}
}

func handleUpdateCustomer(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, p *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid customer ID")
			return
		}

		var payload customerPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req, err := payload.toRequest()
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid birth_date, expected YYYY-MM-DD")
			return
		}

		customer, err := store.UpdateCustomer(r.Context(), db, id, req, p.Staff)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, customer)
	}
}

func handleListTags(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := tags.ListTags(r.Context(), db)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

func handleCreateTag(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		var req struct {
			Label string `json:"label"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		tag, err := tags.CreateTag(r.Context(), db, req.Label)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, tag)
	}
}

func handleDeleteTag(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid tag ID")
			return
		}

		if err := tags.DeleteTag(r.Context(), db, id); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ownerFromQuery(r *http.Request) (tags.Kind, int64, error) {
	kind, err := tags.Resolve(r.URL.Query().Get("kind"))
	if err != nil {
		return "", 0, err
	}
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("owner_id"), 10, 64)
	if err != nil {
		return "", 0, database.Validationf("owner_id", "must be an integer")
	}
	return kind, ownerID, nil
}

func handleListTaggedItems(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ownerID, err := ownerFromQuery(r)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		items, err := tags.ListFor(r.Context(), db, kind, ownerID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, items)
	}
}

func handleAttachTag(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		var req struct {
			Kind    string `json:"kind"`
			OwnerID int64  `json:"owner_id"`
			TagID   int64  `json:"tag_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		kind, err := tags.Resolve(req.Kind)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		item, err := tags.Attach(r.Context(), db, kind, req.OwnerID, req.TagID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, item)
	}
}

func handleDetachTag(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid tagged item ID")
			return
		}

		if err := tags.Detach(r.Context(), db, id); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListLikedItems(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ownerID, err := ownerFromQuery(r)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		items, err := tags.ListLikesFor(r.Context(), db, kind, ownerID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, items)
	}
}

func handleLikeItem(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, p *identity.Principal) {
		var req struct {
			Kind    string `json:"kind"`
			OwnerID int64  `json:"owner_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		kind, err := tags.Resolve(req.Kind)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		item, err := tags.Like(r.Context(), db, kind, req.OwnerID, p.UserID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, item)
	}
}

func handleUnlikeItem(db *sql.DB) principalHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *identity.Principal) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid liked item ID")
			return
		}

		if err := tags.Unlike(r.Context(), db, id); err != nil {
			respondStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func respondStoreError(w http.ResponseWriter, err error) {
	var validationErr *database.ValidationError
	var conflictErr *database.ConflictError
	var configErr *database.ConfigurationError

	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflictErr):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &configErr):
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
