package main

// General API documentation for swaggo. Run `swag init -g cmd/modelhost/docs.go` to regenerate docs.
//
// @title           modelhost API
// @version         1.0
// @description     KServe v2 inference and model repository API.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
