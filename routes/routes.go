package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/24HeuresINSA/OverRun-backend/controllers"
	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
)

// Controllers bundles every HTTP handler set mounted by Register.
type Controllers struct {
	Auth         *controllers.AuthController
	Athletes     *controllers.AthleteController
	Editions     *controllers.EditionController
	Inscriptions *controllers.InscriptionController
	Teams        *controllers.TeamController
	Payments     *controllers.PaymentController
	Certificates *controllers.CertificateController
	Memberships  *controllers.MembershipController
	Admins       *controllers.AdminController
}

var (
	byEdition = func(column string) middleware.FilterSpec {
		return middleware.FilterSpec{Param: "editionId", Column: column, Kind: middleware.FilterUUID}
	}
	athleteNames = []string{"athletes.first_name", "athletes.last_name"}
)

// Register mounts the API on rg. maxPerPage caps the limit parameter of
// every paginated listing.
func Register(rg *gin.RouterGroup, c *Controllers, auth middleware.Authenticator, maxPerPage int) {
	authed := middleware.Auth(auth)
	admin := middleware.RequireRoles(models.RoleActiveAdmin)
	paginate := middleware.Paginate(maxPerPage)

	// Public
	rg.POST("/login", c.Auth.Login)
	rg.POST("/refresh", c.Auth.Refresh)
	rg.POST("/logout", c.Auth.Logout)
	rg.POST("/athletes", c.Athletes.Signup)
	rg.POST("/helloassonotifications", c.Payments.HelloAssoWebhook)
	rg.POST("/stripe/webhook", c.Payments.StripeWebhook)
	rg.POST("/adminInvitations/:id", c.Admins.AcceptInvitation)

	rg.GET("/editions", c.Editions.ListEditions)
	rg.GET("/editions/active", c.Editions.ActiveEdition)
	rg.GET("/editions/:id", c.Editions.GetEdition)
	rg.GET("/races",
		middleware.Filter(byEdition("races.edition_id"),
			middleware.FilterSpec{Param: "categoryId", Column: "races.category_id", Kind: middleware.FilterUUID}),
		middleware.Search("races.name"),
		middleware.OrderBy("races.name", middleware.Columns{"id": "races.id", "name": "races.name"}),
		paginate,
		c.Editions.ListRaces)
	rg.GET("/races/:id", c.Editions.GetRace)

	api := rg.Group("")
	api.Use(authed)

	api.GET("/me", c.Auth.Me)

	api.GET("/athletes/me", c.Athletes.GetMe)
	api.PUT("/athletes/me", c.Athletes.UpdateMe)
	api.GET("/athletes/:id", c.Athletes.GetAthlete)
	api.PUT("/athletes/:id", c.Athletes.UpdateAthlete)
	api.DELETE("/athletes/:id", admin, c.Athletes.DeleteAthlete)
	api.GET("/athletes", admin,
		middleware.Search("users.email", "users.username", "athletes.first_name", "athletes.last_name"),
		middleware.OrderBy("athletes.id", middleware.Columns{
			"id": "athletes.id", "firstName": "athletes.first_name", "lastName": "athletes.last_name",
		}),
		paginate,
		c.Athletes.ListAthletes)

	api.POST("/editions", admin, c.Editions.CreateEdition)
	api.PUT("/editions/:id", admin, c.Editions.UpdateEdition)
	api.DELETE("/editions/:id", admin, c.Editions.DeleteEdition)
	api.GET("/categories", admin,
		middleware.Filter(byEdition("categories.edition_id")),
		middleware.Search("categories.name"),
		middleware.OrderBy("categories.name", middleware.Columns{"id": "categories.id", "name": "categories.name"}),
		paginate,
		c.Editions.ListCategories)
	api.GET("/categories/:id", admin, c.Editions.GetCategory)
	api.POST("/categories", admin, c.Editions.CreateCategory)
	api.PUT("/categories/:id", admin, c.Editions.UpdateCategory)
	api.DELETE("/categories/:id", admin, c.Editions.DeleteCategory)
	api.POST("/races", admin, c.Editions.CreateRace)
	api.PUT("/races/:id", admin, c.Editions.UpdateRace)
	api.DELETE("/races/:id", admin, c.Editions.DeleteRace)
	api.GET("/disciplines", admin,
		middleware.Filter(byEdition("disciplines.edition_id")),
		middleware.Search("disciplines.name"),
		middleware.OrderBy("disciplines.name", middleware.Columns{"id": "disciplines.id", "name": "disciplines.name"}),
		paginate,
		c.Editions.ListDisciplines)
	api.GET("/disciplines/:id", admin, c.Editions.GetDiscipline)
	api.POST("/disciplines", admin, c.Editions.CreateDiscipline)
	api.PUT("/disciplines/:id", admin, c.Editions.UpdateDiscipline)
	api.DELETE("/disciplines/:id", admin, c.Editions.DeleteDiscipline)

	api.POST("/inscriptions", c.Inscriptions.CreateInscription)
	api.GET("/inscriptions/me", c.Inscriptions.MyInscriptions)
	api.DELETE("/inscriptions/:id", c.Inscriptions.CancelInscription)
	api.GET("/inscriptions", admin,
		middleware.Filter(
			byEdition("inscriptions.edition_id"),
			middleware.FilterSpec{Param: "raceId", Column: "inscriptions.race_id", Kind: middleware.FilterUUID},
			middleware.FilterSpec{Param: "status", Column: "inscriptions.status", Kind: middleware.FilterString},
			middleware.FilterSpec{Param: "validated", Column: "inscriptions.validated", Kind: middleware.FilterBool},
		),
		middleware.Search(append(athleteNames, "races.name")...),
		middleware.OrderBy("inscriptions.created_at", middleware.Columns{
			"id": "inscriptions.id", "createdAt": "inscriptions.created_at", "lastName": "athletes.last_name",
		}),
		paginate,
		c.Inscriptions.ListInscriptions)
	api.GET("/inscriptions/:id", admin, c.Inscriptions.GetInscription)
	api.PATCH("/inscriptions/:id", admin, c.Inscriptions.ValidateInscription)

	teamFilters := middleware.Filter(
		byEdition("teams.edition_id"),
		middleware.FilterSpec{Param: "raceId", Column: "teams.race_id", Kind: middleware.FilterUUID},
	)
	teamOrder := middleware.OrderBy("teams.name", middleware.Columns{"id": "teams.id", "name": "teams.name"})
	api.GET("/teams", admin, teamFilters, middleware.Search("teams.name"), teamOrder, paginate, c.Teams.ListTeams)
	api.GET("/teams/light", teamFilters, middleware.Search("teams.name"), teamOrder, paginate, c.Teams.ListTeamsLight)
	api.GET("/teams/:id", c.Teams.GetTeam)
	api.POST("/teams", c.Teams.CreateTeam)
	api.DELETE("/teams/:id", admin, c.Teams.DeleteTeam)
	api.POST("/teams/:id/join", c.Teams.JoinTeam)
	api.POST("/teams/:id/leave", c.Teams.LeaveTeam)
	api.POST("/teams/:id/admin", c.Teams.AddTeamAdmin)
	api.POST("/teams/:id/removeAdmin", c.Teams.RemoveTeamAdmin)
	api.POST("/teams/:id/removeMember", c.Teams.RemoveTeamMember)
	api.POST("/teams/:id/updatePassword", c.Teams.UpdateTeamPassword)

	api.POST("/payments", c.Payments.CreatePayment)
	api.GET("/payments/me", c.Payments.MyPayments)
	api.POST("/payments/:id/initiate", c.Payments.InitiatePayment)
	api.PATCH("/payments/:id", c.Payments.UpdatePayment)
	api.GET("/payments/:id/qrcode", c.Payments.CheckoutQRCode)
	api.GET("/payments", admin,
		middleware.Filter(
			byEdition("inscriptions.edition_id"),
			middleware.FilterSpec{Param: "raceId", Column: "inscriptions.race_id", Kind: middleware.FilterUUID},
			middleware.FilterSpec{Param: "status", Column: "payments.status", Kind: middleware.FilterString},
			middleware.FilterSpec{Param: "inscriptionStatus", Column: "inscriptions.status", Kind: middleware.FilterString},
		),
		middleware.Search(append(athleteNames, "races.name")...),
		middleware.OrderBy("payments.created_at", middleware.Columns{
			"id":          "payments.id",
			"createdAt":   "payments.created_at",
			"date":        "payments.payment_date",
			"totalAmount": "payments.total_amount",
		}),
		paginate,
		c.Payments.ListPayments)
	api.GET("/payments/totals", admin, c.Payments.Totals)
	api.GET("/payments/amountByDate", admin, c.Payments.AmountByDate)
	api.GET("/payments/byDate", admin, c.Payments.PaymentsByDate)
	api.GET("/payments/:id", admin, c.Payments.GetPayment)
	api.POST("/payments/:id/validate", admin, c.Payments.ValidatePayment)
	api.POST("/payments/:id/refuse", admin, c.Payments.RefusePayment)
	api.POST("/payments/:id/refund", admin, c.Payments.RefundPayment)

	api.POST("/certificates/upload", c.Certificates.UploadCertificate)
	api.GET("/certificates/me/last", c.Certificates.LastCertificate)
	api.GET("/certificates/:id/download", c.Certificates.DownloadCertificate)
	api.PATCH("/certificates/:id", c.Certificates.AttachCertificate)
	api.GET("/certificates", admin,
		middleware.Filter(
			byEdition("inscriptions.edition_id"),
			middleware.FilterSpec{Param: "status", Column: "certificates.status", Kind: middleware.FilterString},
		),
		middleware.Search(athleteNames...),
		middleware.OrderBy("certificates.uploaded_at", middleware.Columns{
			"id": "certificates.id", "uploadedAt": "certificates.uploaded_at",
		}),
		paginate,
		c.Certificates.ListCertificates)
	api.GET("/certificates/:id", admin, c.Certificates.GetCertificate)
	api.POST("/certificates/:id", admin, c.Certificates.UpdateCertificateStatus)

	api.POST("/checkVA", c.Memberships.CheckMembership)
	api.GET("/vas", admin,
		middleware.Filter(byEdition("inscriptions.edition_id")),
		middleware.Search(append(athleteNames, "memberships.card_number")...),
		middleware.OrderBy("memberships.created_at", middleware.Columns{
			"id": "memberships.id", "createdAt": "memberships.created_at",
		}),
		paginate,
		c.Memberships.ListMemberships)

	api.GET("/admins", admin,
		middleware.Filter(middleware.FilterSpec{Param: "active", Column: "admins.active", Kind: middleware.FilterBool}),
		middleware.Search("users.email", "users.username"),
		middleware.OrderBy("admins.id", middleware.Columns{"id": "admins.id", "username": "users.username"}),
		paginate,
		c.Admins.ListAdmins)
	api.GET("/admins/:id", admin, c.Admins.GetAdmin)
	api.POST("/admins", admin, c.Admins.CreateAdmin)
	api.PATCH("/admins/:id", admin, c.Admins.ActivateAdmin)
	api.DELETE("/admins/:id", admin, c.Admins.DeleteAdmin)

	api.GET("/adminInvitations", admin,
		middleware.Search("admin_invitations.email"),
		middleware.OrderBy("admin_invitations.created_at", middleware.Columns{
			"id": "admin_invitations.id", "email": "admin_invitations.email", "createdAt": "admin_invitations.created_at",
		}),
		paginate,
		c.Admins.ListInvitations)
	api.POST("/adminInvitations", admin, c.Admins.CreateInvitation)
	api.DELETE("/adminInvitations/:id", admin, c.Admins.DeleteInvitation)
}
