package model

// Order is a read-only view of a shop order as returned by the website
// API. The bot never originates or persists order state.
type Order struct {
	ID            string      `json:"id"`
	OrderNumber   string      `json:"order_number"`
	Status        string      `json:"status"`
	TotalAmount   float64     `json:"total_amount"`
	CreatedAt     string      `json:"created_at"`
	Items         []OrderItem `json:"items"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
}

// DisplayID prefers the human-facing order number over the raw id.
func (o Order) DisplayID() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.ID
}

// OrderItem is one line of an order.
type OrderItem struct {
	Name     string  `json:"product_name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"product_price"`
}

// OrderStats is the server-side statistics payload from /api/orders/stats.
type OrderStats struct {
	TotalOrders     int     `json:"total_orders"`
	TotalValue      float64 `json:"total_value"`
	PendingOrders   int     `json:"pending_orders"`
	CompletedOrders int     `json:"completed_orders"`
	RecentOrders    int     `json:"recent_orders"`
}

// SystemStatus is the health payload from /api/bot/status.
type SystemStatus struct {
	Database      bool   `json:"database"`
	APIServer     bool   `json:"api_server"`
	Redis         bool   `json:"redis"`
	ActiveUsers   int    `json:"active_users"`
	TotalSessions int    `json:"total_sessions"`
	CommandsToday int    `json:"commands_today"`
	Uptime        string `json:"uptime"`
}
