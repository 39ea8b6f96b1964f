package handlers

import (
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

// ListUsersHandler lists users of the caller's office, optionally by role.
func ListUsersHandler(c echo.Context) error {
	page := pageFromQuery(c)
	users, total, err := services.ListUsers(db.DB, middleware.GetScope(c), c.QueryParam("role"), page)
	if err != nil {
		return HTTPError(err)
	}
	views := make([]services.UserView, len(users))
	for i, u := range users {
		views[i] = services.NewUserView(u)
	}
	return paginated(c, views, total, page)
}

func GetUserHandler(c echo.Context) error {
	user, err := services.GetUser(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, services.NewUserView(*user))
}

func CreateUserHandler(c echo.Context) error {
	var in services.UserInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	user, err := services.CreateUser(db.DB, middleware.GetScope(c), in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, officeOf(user), "User", user.ID, user.Name, nil, user)
	return c.JSON(http.StatusCreated, services.NewUserView(*user))
}

func UpdateUserHandler(c echo.Context) error {
	var in services.UserInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetUser(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	user, err := services.UpdateUser(db.DB, scope, middleware.GetCurrentUser(c), old.ID, in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, officeOf(user), "User", user.ID, user.Name, old, user)
	return c.JSON(http.StatusOK, services.NewUserView(*user))
}

// DeleteUserHandler refuses to let users delete themselves.
func DeleteUserHandler(c echo.Context) error {
	user, err := services.DeleteUser(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, officeOf(user), "User", user.ID, user.Name, user, nil)
	return noContent(c)
}

func officeOf(u *models.User) string {
	if u.HasOffice() {
		return *u.OfficeID
	}
	return ""
}
