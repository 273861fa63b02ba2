// Package clock abstracts the system clock behind a small interface so code
// with time-bound behavior (expiry windows, throttles) can be tested with a
// frozen or stepped clock.
package clock
