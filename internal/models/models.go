// Package models provides GORM-based models with a Django ORM-like interface
// for the account side of the portal: users, their profiles and their roles.
// Project, ticket and feed data live in the raw-SQL database package.
package models
