package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           scoutd API
// @version         1.0
// @description     HTTP API for model catalog classification and cached model loading.
//
// @contact.name   scoutd maintainers
// @contact.url    https://github.com/your-org/scoutd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
