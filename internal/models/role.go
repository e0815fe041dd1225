package models

import "fmt"

// RoleName is the persisted form of a Role.
type RoleName string

const (
	RoleNameSystemAdmin  RoleName = "system_admin"
	RoleNameAgencyOwner  RoleName = "agency_owner"
	RoleNameAgencyHelper RoleName = "agency_helper"
	RoleNameHouseAdmin   RoleName = "house_admin"
	RoleNameCustomer     RoleName = "customer"
)

// Dashboard is the closed set of landing views a role can resolve to.
type Dashboard string

const (
	DashboardSystemAdmin Dashboard = "system_admin"
	DashboardAgency      Dashboard = "agency"
	DashboardHouseAdmin  Dashboard = "house_admin"
	DashboardCustomer    Dashboard = "customer"
)

// Dashboards lists every Dashboard value.
var Dashboards = []Dashboard{DashboardSystemAdmin, DashboardAgency, DashboardHouseAdmin, DashboardCustomer}

// Role is a sealed union over the known roles. Only this package can add a
// variant, and every variant must name its dashboard.
type Role interface {
	Name() RoleName
	Label() string
	Dashboard() Dashboard
	sealed()
}

type systemAdmin struct{}
type agencyOwner struct{}
type agencyHelper struct{}
type houseAdmin struct{}
type customer struct{}

var (
	SystemAdmin  Role = systemAdmin{}
	AgencyOwner  Role = agencyOwner{}
	AgencyHelper Role = agencyHelper{}
	HouseAdmin   Role = houseAdmin{}
	Customer     Role = customer{}
)

// Roles lists every Role value.
var Roles = []Role{SystemAdmin, AgencyOwner, AgencyHelper, HouseAdmin, Customer}

func (systemAdmin) Name() RoleName       { return RoleNameSystemAdmin }
func (systemAdmin) Label() string        { return "System Admin" }
func (systemAdmin) Dashboard() Dashboard { return DashboardSystemAdmin }
func (systemAdmin) sealed()              {}

func (agencyOwner) Name() RoleName       { return RoleNameAgencyOwner }
func (agencyOwner) Label() string        { return "Agency Owner" }
func (agencyOwner) Dashboard() Dashboard { return DashboardAgency }
func (agencyOwner) sealed()              {}

func (agencyHelper) Name() RoleName       { return RoleNameAgencyHelper }
func (agencyHelper) Label() string        { return "Agency Helper" }
func (agencyHelper) Dashboard() Dashboard { return DashboardAgency }
func (agencyHelper) sealed()              {}

func (houseAdmin) Name() RoleName       { return RoleNameHouseAdmin }
func (houseAdmin) Label() string        { return "House Admin" }
func (houseAdmin) Dashboard() Dashboard { return DashboardHouseAdmin }
func (houseAdmin) sealed()              {}

func (customer) Name() RoleName       { return RoleNameCustomer }
func (customer) Label() string        { return "Customer" }
func (customer) Dashboard() Dashboard { return DashboardCustomer }
func (customer) sealed()              {}

// ParseRole resolves a persisted role name. Unknown names are an error.
func ParseRole(name RoleName) (Role, error) {
	for _, r := range Roles {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("unknown role %q", name)
}

// IsAgencyStaff reports whether r acts on behalf of an agency.
func IsAgencyStaff(r Role) bool {
	return r == AgencyOwner || r == AgencyHelper
}

// IsHouseMember reports whether r belongs to a house.
func IsHouseMember(r Role) bool {
	return r == HouseAdmin || r == Customer
}
