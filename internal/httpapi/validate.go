package httpapi

import (
	"regexp"
	"unicode/utf8"

	"hailway.org/internal/principal"
)

var emailRx = regexp.MustCompile(`^[\w\-.]+@([\w\-]+\.)+[\w\-]{2,4}$`)

// fieldError mirrors the shape validation errors had in the public API:
// which field failed and why.
type fieldError struct {
	Path string `json:"path"`
	Msg  string `json:"msg"`
}

func validEmail(email string) bool {
	return emailRx.MatchString(principal.NormalizeEmail(email))
}

func minLen(s string, n int) bool {
	return utf8.RuneCountInString(s) >= n
}

func validateRegister(req registerRequest, kind principal.Kind) []fieldError {
	var errs []fieldError
	if !validEmail(req.Email) {
		errs = append(errs, fieldError{Path: "email", Msg: "Please enter a valid email address"})
	}
	if !minLen(req.Fullname.Firstname, 3) {
		errs = append(errs, fieldError{Path: "fullname.firstname", Msg: "First name must be at least 3 characters long"})
	}
	if !minLen(req.Password, 6) {
		errs = append(errs, fieldError{Path: "password", Msg: "Password must be at least 6 characters long"})
	}
	if kind == principal.KindCaptain {
		if req.Vehicle == nil {
			errs = append(errs, fieldError{Path: "vehicle", Msg: "Vehicle details are required"})
			return errs
		}
		if !minLen(req.Vehicle.Color, 3) {
			errs = append(errs, fieldError{Path: "vehicle.color", Msg: "Color must be at least 3 characters long"})
		}
		if !minLen(req.Vehicle.Plate, 3) {
			errs = append(errs, fieldError{Path: "vehicle.plate", Msg: "Please enter a valid vehicle plate number"})
		}
		if req.Vehicle.Capacity < 1 {
			errs = append(errs, fieldError{Path: "vehicle.capacity", Msg: "Capacity must be at least 1"})
		}
		if !principal.ValidVehicleType(principal.VehicleType(req.Vehicle.VehicleType)) {
			errs = append(errs, fieldError{Path: "vehicle.vehicleType", Msg: "Vehicle type must be one of car, bike, or auto"})
		}
	}
	return errs
}

func validateLogin(req loginRequest) []fieldError {
	var errs []fieldError
	if !validEmail(req.Email) {
		errs = append(errs, fieldError{Path: "email", Msg: "Please enter a valid email address"})
	}
	if !minLen(req.Password, 6) {
		errs = append(errs, fieldError{Path: "password", Msg: "Password must be at least 6 characters long"})
	}
	return errs
}
