package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"duck-presale.backend/internal/interfaces/http/handlers"
)

type routeDeps struct {
	paymentHandler       *handlers.PaymentHandler
	webhookHandler       *handlers.WebhookHandler
	onchainHandler       *handlers.OnchainHandler
	investorHandler      *handlers.InvestorHandler
	authorizationHandler *handlers.AuthorizationHandler
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1/presale")
	{
		// Invoice flow (public: the wallet address is the identity)
		v1.POST("/invoice", d.paymentHandler.CreateInvoice)
		v1.GET("/payments", d.paymentHandler.ListPayments)
		v1.GET("/payments/:id", d.paymentHandler.GetPayment)
		v1.GET("/currencies", d.paymentHandler.Currencies)
		v1.GET("/estimate", d.paymentHandler.Estimate)
		v1.GET("/gateway/status", d.paymentHandler.GatewayStatus)

		// Gateway IPN callback
		v1.POST("/webhook", d.webhookHandler.HandleIPN)

		// On-chain reads and the claim flow
		v1.GET("/onchain/config", d.onchainHandler.GetConfig)
		v1.GET("/stats", d.onchainHandler.GetStats)
		v1.GET("/allocation/:wallet", d.onchainHandler.GetAllocation)
		v1.GET("/vesting/:wallet", d.onchainHandler.GetVesting)
		v1.POST("/claim-wallet/challenge", d.onchainHandler.RequestBindChallenge)
		v1.POST("/claim-wallet/bind", d.onchainHandler.BindClaimWallet)
		v1.POST("/claim/prepare", d.onchainHandler.PrepareClaim)

		// Direct on-chain purchase authorizations
		v1.POST("/purchase/authorize", d.authorizationHandler.AuthorizePurchase)
		v1.GET("/purchase/nonce/:wallet/:nonce", d.authorizationHandler.CheckNonce)
		v1.POST("/purchase/confirm", d.authorizationHandler.ConfirmPurchase)

		// Investors and pricing
		v1.GET("/investors/:wallet", d.investorHandler.GetInvestor)
		v1.GET("/leaderboard", d.investorHandler.Leaderboard)
		v1.POST("/referral/code", d.investorHandler.CreateReferralCode)
		v1.GET("/referral/:wallet", d.investorHandler.GetReferralStats)
		v1.GET("/price", d.investorHandler.GetPriceInfo)
	}
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}
