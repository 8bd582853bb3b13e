package services

// Services defined in this package:
// - AllocationService: runs allocation passes, handles withdrawals and
//   waitlist promotion events
// - EnrollmentService: accepts and serves student preference submissions
// - CourseService: course catalog operations feeding the engine
// - PromotionDispatcher: serialized, event-driven promotion worker
