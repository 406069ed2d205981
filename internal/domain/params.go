package domain

// Business parameter keys, resolved per tenant
const (
	ParamPaymentURL    = "pago_mercantil.mercantil_payment_url"
	ParamIntegratorID  = "pago_mercantil.integrator_id"
	ParamSecretKey     = "pago_mercantil.secret_key"
	ParamShopifySecret = "shopify.api_secret"
)
