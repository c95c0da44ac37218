package entity

// TemplateRegisterOTP is the notification template of registration codes.
const TemplateRegisterOTP = "register_otp"

// SubjectRegisterOTP is the subject line of registration codes.
const SubjectRegisterOTP = "Your Passgate verification code"
