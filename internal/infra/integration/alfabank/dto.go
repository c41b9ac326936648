package alfabank

// Callback operations and status values as the gateway defines them.
const (
	OperationDeposited       = "deposited"
	OperationDeclinedTimeout = "declined_timeout"

	// CallbackStatusSuccess on a deposited callback means the charge went
	// through.
	CallbackStatusSuccess = 1

	// OrderStatusDeposited is the orderStatus getOrderStatusExtended.do
	// reports for a fully paid order.
	OrderStatusDeposited = 2
)

// RegisterOrderOutput is what the reconciler needs back from register.do.
type RegisterOrderOutput struct {
	FormURL string // payment page handed to the customer
	OrderID string // gateway-assigned order id (mdOrder in callbacks)
}

type registerOrderResponse struct {
	FormURL      string `json:"formUrl"`
	OrderID      string `json:"orderId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type orderStatusResponse struct {
	OrderStatus  int    `json:"orderStatus"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}
