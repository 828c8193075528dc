package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with the struct-level rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// percentage codes cannot exceed 100
	v.RegisterStructValidation(promoCodeStructValidation, PromoCodeRequest{})
	// parcel locker deliveries need a locker id
	v.RegisterStructValidation(checkoutStructValidation, CheckoutRequest{})

	return v
}

func promoCodeStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(PromoCodeRequest)
	if req.DiscountType == "PERCENTAGE" && req.DiscountValue > 100 {
		sl.ReportError(req.DiscountValue, "discountValue", "DiscountValue", "percentage_max", "100")
	}
}

func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutRequest)
	if req.ShippingMethod == ShippingParcelLocker && req.DeliveryPointID == "" {
		sl.ReportError(req.DeliveryPointID, "deliveryPointId", "DeliveryPointID", "required_for_parcel_locker", "")
	}
}
